package astmodel

import (
	"encoding/json"
)

// The JSON form of a model is what the CLI hands to an external code emitter.
// Classes reference each other by name to keep the document flat.

type modelJSON struct {
	Classes []classJSON       `json:"classes"`
	ByRule  map[string]string `json:"byRule"`
}

type classJSON struct {
	Name       string         `json:"name"`
	Rule       string         `json:"rule"`
	Abstract   bool           `json:"abstract,omitempty"`
	Base       string         `json:"base,omitempty"`
	Variants   []classJSON    `json:"variants,omitempty"`
	Properties []propertyJSON `json:"properties,omitempty"`
}

type propertyJSON struct {
	Kind     string     `json:"kind"`
	Name     string     `json:"name"`
	Class    string     `json:"class,omitempty"`
	Token    *tokenJSON `json:"token,omitempty"`
	Optional bool       `json:"optional,omitempty"`
}

type tokenJSON struct {
	Name    string `json:"name,omitempty"`
	Literal string `json:"literal,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (m *Model) MarshalJSON() ([]byte, error) {
	doc := modelJSON{ByRule: make(map[string]string, len(m.ByRule))}
	for rule, class := range m.ByRule {
		doc.ByRule[rule] = class.Name
	}
	for _, class := range m.Classes {
		doc.Classes = append(doc.Classes, encodeClass(class))
	}
	return json.Marshal(doc)
}

func encodeClass(c *NodeClass) classJSON {
	cj := classJSON{
		Name:     c.Name,
		Rule:     c.Rule.Name,
		Abstract: c.IsAbstract(),
	}
	if c.Base() != nil {
		cj.Base = c.Base().Name
	}
	for _, v := range c.Variants() {
		cj.Variants = append(cj.Variants, encodeClass(v))
	}
	for _, p := range c.Properties {
		cj.Properties = append(cj.Properties, encodeProperty(p))
	}
	return cj
}

func encodeProperty(p Property) propertyJSON {
	switch p := p.(type) {
	case NodeReference:
		return propertyJSON{Kind: "nodeReference", Name: p.PropName, Class: p.Class.Name, Optional: p.Optional}
	case NodeReferenceList:
		return propertyJSON{Kind: "nodeReferenceList", Name: p.PropName, Class: p.Class.Name}
	case TokenText:
		return propertyJSON{Kind: "tokenText", Name: p.PropName, Token: encodeToken(p.Token), Optional: p.Optional}
	case TokenTextList:
		return propertyJSON{Kind: "tokenTextList", Name: p.PropName, Token: encodeToken(p.Token)}
	case PresenceFlag:
		return propertyJSON{Kind: "presenceFlag", Name: p.PropName, Token: encodeToken(p.Token)}
	default:
		// closed sum; unreachable
		return propertyJSON{}
	}
}

func encodeToken(t ResolvedToken) *tokenJSON {
	tj := &tokenJSON{Name: t.Name, Literal: t.Literal}
	if t.Rule != nil {
		tj.Rule = t.Rule.Name
	}
	return tj
}
