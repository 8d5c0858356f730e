package generate

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/gramgen/pkg/astmodel"
	"github.com/walteh/gramgen/pkg/classify"
	"github.com/walteh/gramgen/pkg/config"
	"github.com/walteh/gramgen/pkg/diagnostic"
	"github.com/walteh/gramgen/pkg/grammar"
	"github.com/walteh/gramgen/pkg/highlight"
	"github.com/walteh/gramgen/pkg/tmlanguage"
)

type Handler struct {
	grammarGlob string
	configPath  string
	outDir      string

	fs afero.Fs
}

func NewGenerateCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate the AST class model and the highlighting grammar for each grammar model",
	}

	cmd.Flags().StringVar(&me.grammarGlob, "grammar", "", "glob matching grammar model JSON files")
	cmd.Flags().StringVar(&me.configPath, "config", "", "path to the generator config JSON")
	cmd.Flags().StringVar(&me.outDir, "out", "generated", "output directory")
	_ = cmd.MarkFlagRequired("grammar")
	_ = cmd.MarkFlagRequired("config")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	cfgData, err := afero.ReadFile(me.fs, me.configPath)
	if err != nil {
		return errors.Errorf("reading config %s: %w", me.configPath, err)
	}
	cfg, err := config.Load(cfgData)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Errorf("invalid config: %w", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	matches, err := doublestar.Glob(afero.NewIOFS(me.fs), me.grammarGlob)
	if err != nil {
		return errors.Errorf("expanding grammar glob %q: %w", me.grammarGlob, err)
	}
	if len(matches) == 0 {
		return errors.Errorf("no grammar models match %q", me.grammarGlob)
	}

	if err := me.fs.MkdirAll(me.outDir, 0o755); err != nil {
		return errors.Errorf("creating output directory: %w", err)
	}

	var failures error
	for _, path := range matches {
		if err := me.generateOne(ctx, path, settings); err != nil {
			failures = multierr.Append(failures, errors.Errorf("grammar %s: %w", path, err))
		}
	}
	return failures
}

// generateOne runs both engines over one grammar model and writes both
// artifacts. Each run gets fresh caches; diagnostics are logged and never stop
// the run.
func (me *Handler) generateOne(ctx context.Context, path string, settings highlight.Settings) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("grammar", path).Msg("generating artifacts")

	data, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading grammar model: %w", err)
	}
	g, err := grammar.Unmarshal(data)
	if err != nil {
		return err
	}

	sink := diagnostic.NewCollector()

	model, err := astmodel.NewBuilder(g, sink).BuildAll(ctx)
	if err != nil {
		return errors.Errorf("building class model: %w", err)
	}

	classifier := classify.New(g)
	patterns, err := highlight.New(g, classifier, settings, sink).Synthesize(ctx)
	if err != nil {
		return errors.Errorf("synthesizing highlighting patterns: %w", err)
	}

	for _, d := range sink.All() {
		diagnostic.LogSink{}.Report(ctx, d)
	}

	doc := tmlanguage.FromPatterns(settings.LanguageID, settings.DisplayName, patterns)
	docData, err := doc.Marshal()
	if err != nil {
		return err
	}
	modelData, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return errors.Errorf("marshaling class model: %w", err)
	}

	base := g.Name
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var failures error
	if err := afero.WriteFile(me.fs, filepath.Join(me.outDir, base+".tmLanguage.json"), docData, 0o644); err != nil {
		failures = multierr.Append(failures, errors.Errorf("writing tmLanguage document: %w", err))
	}
	if err := afero.WriteFile(me.fs, filepath.Join(me.outDir, base+".astmodel.json"), append(modelData, '\n'), 0o644); err != nil {
		failures = multierr.Append(failures, errors.Errorf("writing class model: %w", err))
	}
	return failures
}
