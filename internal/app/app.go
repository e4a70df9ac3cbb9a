// Package app assembles the redline components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kamilpajak/redline/internal/analysis"
	"github.com/kamilpajak/redline/internal/catalog"
	"github.com/kamilpajak/redline/internal/classifier"
	"github.com/kamilpajak/redline/internal/compare"
	"github.com/kamilpajak/redline/internal/config"
	"github.com/kamilpajak/redline/internal/extract"
	"github.com/kamilpajak/redline/internal/llm"
	"github.com/kamilpajak/redline/internal/report"
	"github.com/kamilpajak/redline/internal/rules"
	"github.com/kamilpajak/redline/internal/store"
)

// App holds the long-lived components shared by the CLI and the server.
type App struct {
	Config   *config.Config
	Rules    *rules.Rules
	Catalog  *catalog.Catalog
	Store    *store.Store
	Pipeline *analysis.Pipeline
	Reports  *report.Assembler
	Formats  []report.Format
	Oracle   *llm.Oracle // nil when the LLM is disabled
	Logger   *slog.Logger
}

// Options override configuration for a single process.
type Options struct {
	DisableLLM bool
}

// New builds every component. Nothing here talks to an LLM; MinIO is
// contacted only to ensure the bucket exists.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	extractor := extract.NewRegistry()
	cat, err := catalog.Load(cfg.Templates.Dir, r, extractor.Extensions())
	if err != nil {
		return nil, err
	}
	if cat.Len() == 0 {
		logger.Warn("template directory is empty", "dir", cfg.Templates.Dir)
	}

	st, err := store.New(cfg.Snapshots.Dir)
	if err != nil {
		return nil, err
	}

	var oracle *llm.Oracle
	if cfg.LLM.Enabled && !opts.DisableLLM {
		if oracle, err = newOracle(cfg.LLM, logger); err != nil {
			return nil, err
		}
	}

	var cls *classifier.Classifier
	pcfg := analysis.Config{
		Extractor: extractor,
		Catalog:   cat,
		Rules:     r,
		Engine: compare.New(compare.Options{
			PairThreshold: cfg.Compare.PairThreshold,
			MaxSimilarity: cfg.Compare.MaxSimilarity,
			MinChars:      cfg.Compare.MinChars,
			CaseSensitive: cfg.Compare.CaseSensitive,
		}),
		Store:  st,
		Logger: logger,
	}
	if oracle != nil {
		cls = classifier.New(r, oracle, classifier.Options{Timeout: cfg.LLM.Timeout, Logger: logger})
		pcfg.LLMProvider = string(oracle.Provider())
		pcfg.LLMModel = oracle.Model()
	} else {
		cls = classifier.New(r, nil, classifier.Options{Logger: logger})
	}
	pcfg.Classifier = cls

	pipeline, err := analysis.New(pcfg)
	if err != nil {
		return nil, err
	}

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	formats, err := report.ParseFormats(cfg.Reports.Formats)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Rules:    r,
		Catalog:  cat,
		Store:    st,
		Pipeline: pipeline,
		Reports:  report.NewAssembler(storage, report.Options{PDFFont: cfg.Reports.PDFFont, Logger: logger}),
		Formats:  formats,
		Oracle:   oracle,
		Logger:   logger,
	}, nil
}

func newOracle(cfg config.LLMConfig, logger *slog.Logger) (*llm.Oracle, error) {
	provider, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	completer, err := llm.NewCompleter(provider, cfg.APIKey, cfg.Model, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return llm.NewOracle(completer, llm.OracleOptions{
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	}), nil
}

func newStorage(ctx context.Context, cfg *config.Config) (report.Storage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		m := cfg.Storage.MinIO
		return report.NewMinIOStorage(ctx, report.MinIOConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
		})
	case "", "local":
		return report.NewLocalStorage(cfg.Reports.OutputDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
