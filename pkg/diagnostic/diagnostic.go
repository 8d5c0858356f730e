// Package diagnostic carries non-fatal findings out of a generation run. Fatal
// errors travel as ordinary error returns; everything else is reported to a
// caller-supplied Sink and never interrupts the run.
package diagnostic

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Severity represents the severity level of a diagnostic
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Diagnostic is a single finding, located by the grammar rule it concerns.
type Diagnostic struct {
	Severity Severity
	Rule     string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Rule == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: rule %q: %s", d.Severity, d.Rule, d.Message)
}

// Sink receives diagnostics during a generation run.
type Sink interface {
	Report(ctx context.Context, d Diagnostic)
}

// Collector is a Sink that accumulates diagnostics in order.
type Collector struct {
	diags []Diagnostic
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements Sink
func (c *Collector) Report(ctx context.Context, d Diagnostic) {
	zerolog.Ctx(ctx).Debug().Str("rule", d.Rule).Str("severity", string(d.Severity)).Msg(d.Message)
	c.diags = append(c.diags, d)
}

// All returns the collected diagnostics in report order.
func (c *Collector) All() []Diagnostic {
	return c.diags
}

// LogSink is a Sink that forwards each diagnostic to the zerolog logger on the
// context and keeps nothing.
type LogSink struct{}

// Report implements Sink
func (LogSink) Report(ctx context.Context, d Diagnostic) {
	logger := zerolog.Ctx(ctx)
	switch d.Severity {
	case Error:
		logger.Error().Str("rule", d.Rule).Msg(d.Message)
	case Warning:
		logger.Warn().Str("rule", d.Rule).Msg(d.Message)
	default:
		logger.Info().Str("rule", d.Rule).Msg(d.Message)
	}
}

// Warnf reports a formatted warning for a rule.
func Warnf(ctx context.Context, sink Sink, rule, format string, args ...any) {
	sink.Report(ctx, Diagnostic{Severity: Warning, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

// Errorf reports a formatted non-fatal error for a rule.
func Errorf(ctx context.Context, sink Sink, rule, format string, args ...any) {
	sink.Report(ctx, Diagnostic{Severity: Error, Rule: rule, Message: fmt.Sprintf(format, args...)})
}
