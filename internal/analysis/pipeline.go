// Package analysis runs the contract review pipeline: extract, select a
// template, compare, classify and aggregate.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kamilpajak/redline/internal/catalog"
	"github.com/kamilpajak/redline/internal/classifier"
	"github.com/kamilpajak/redline/internal/compare"
	"github.com/kamilpajak/redline/internal/extract"
	"github.com/kamilpajak/redline/internal/rules"
	"github.com/kamilpajak/redline/internal/store"
	"github.com/kamilpajak/redline/pkg/models"
)

// UnknownTemplateError is returned when a manual template override names no catalog entry.
type UnknownTemplateError struct {
	Name string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("template %q not found in catalog", e.Name)
}

// Config wires the pipeline's collaborators. Catalog and Rules are required.
type Config struct {
	Extractor  extract.Extractor
	Catalog    *catalog.Catalog
	Rules      *rules.Rules
	Engine     *compare.Engine
	Classifier *classifier.Classifier
	Store      *store.Store // optional; results are saved when set

	// Recorded in result metadata when the classifier has an LLM oracle.
	LLMProvider string
	LLMModel    string

	Logger *slog.Logger
}

// Pipeline analyzes contracts. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	extractor  extract.Extractor
	catalog    *catalog.Catalog
	selector   *catalog.Selector
	engine     *compare.Engine
	classifier *classifier.Classifier
	store      *store.Store
	meta       models.Metadata
	logger     *slog.Logger
}

// New builds a pipeline, filling unset collaborators with defaults.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("analysis: catalog is required")
	}
	if cfg.Rules == nil {
		return nil, errors.New("analysis: rules are required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.NewRegistry()
	}
	if cfg.Engine == nil {
		cfg.Engine = compare.New(compare.DefaultOptions())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.New(cfg.Rules, nil, classifier.Options{Logger: cfg.Logger})
	}
	return &Pipeline{
		extractor:  cfg.Extractor,
		catalog:    cfg.Catalog,
		selector:   catalog.NewSelector(cfg.Catalog, cfg.Rules),
		engine:     cfg.Engine,
		classifier: cfg.Classifier,
		store:      cfg.Store,
		meta:       models.Metadata{LLMProvider: cfg.LLMProvider, LLMModel: cfg.LLMModel},
		logger:     cfg.Logger,
	}, nil
}

// Catalog returns the template catalog the pipeline selects from.
func (p *Pipeline) Catalog() *catalog.Catalog { return p.catalog }

// Store returns the snapshot store, or nil.
func (p *Pipeline) Store() *store.Store { return p.store }

// RunOptions configures a single run.
type RunOptions struct {
	// Template bypasses selection and compares against the named catalog entry.
	Template string
	// Name is the contract's display name used for filename matching.
	// Defaults to the base name of the contract path.
	Name    string
	Emitter ProgressEmitter
}

// Run executes the full pipeline for one contract. Extraction failures,
// unmatched contracts and unknown manual templates are fatal and produce no
// result. Classification never fails; the LLM oracle degrades to heuristics.
func (p *Pipeline) Run(ctx context.Context, contractPath string, opts RunOptions) (*models.AnalysisResult, error) {
	start := time.Now()
	name := opts.Name
	if name == "" {
		name = filepath.Base(contractPath)
	}
	step := func(n int, msg string) {
		emit(opts.Emitter, ProgressEvent{Type: "step", File: name, Step: n, MaxStep: maxStep, Message: msg})
	}

	result, err := p.run(ctx, contractPath, name, opts.Template, step)
	if err != nil {
		emit(opts.Emitter, ProgressEvent{Type: "error", File: name, Message: err.Error()})
		return nil, err
	}

	elapsed := time.Since(start)
	p.logger.Info("analysis complete",
		"id", result.ID,
		"contract", name,
		"template", result.TemplateRef,
		"changes", result.Counts.Total,
		"risk", result.OverallRiskLevel,
		"similarity", result.SimilarityScore,
		"duration", elapsed,
	)
	emit(opts.Emitter, ProgressEvent{Type: "done", File: name, ElapsedMs: elapsed.Milliseconds(), Result: result})
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, contractPath, name, manual string, step func(int, string)) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	step(StepExtract, "Extracting contract text")
	contract, err := p.extractor.Extract(contractPath)
	if err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}

	step(StepSelect, "Selecting template")
	match, err := p.selectTemplate(contract, name, manual)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("template selected", "contract", name, "template", match.Entry.Name, "rule", match.Rule, "keyword", match.Keyword)

	template, err := p.extractor.Extract(match.Entry.Path)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	step(StepCompare, "Comparing against "+match.Entry.Name)
	cmp := p.engine.Compare(template, contract)

	step(StepClassify, fmt.Sprintf("Classifying %d changes", len(cmp.Changes)))
	changes := p.classifier.ClassifyAll(ctx, cmp.Changes)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := p.meta
	meta.TemplateName = match.Entry.Name
	meta.MatchRule = match.Rule
	meta.MatchKeyword = strings.TrimSpace(match.Keyword)
	if !usedLLM(changes) {
		meta.LLMProvider, meta.LLMModel = "", ""
	}

	result, err := models.NewAnalysisResult(contractPath, match.Entry.Name, cmp.Similarity, changes, meta)
	if err != nil {
		return nil, fmt.Errorf("assembling result: %w", err)
	}

	if p.store != nil {
		step(StepSave, "Saving snapshot")
		if err := p.store.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("saving result: %w", err)
		}
	}
	return result, nil
}

func (p *Pipeline) selectTemplate(contract []string, name, manual string) (catalog.Match, error) {
	if manual != "" {
		e, ok := p.catalog.Get(manual)
		if !ok {
			return catalog.Match{}, &UnknownTemplateError{Name: manual}
		}
		return catalog.Match{Entry: e, Rule: catalog.RuleManual}, nil
	}
	match, ok := p.selector.Select(strings.Join(contract, "\n"), name)
	if !ok {
		return catalog.Match{}, &catalog.UnmatchedContractError{Filename: name}
	}
	return match, nil
}

func usedLLM(changes []models.Change) bool {
	for _, c := range changes {
		if c.Source == models.SourceLLM {
			return true
		}
	}
	return false
}
