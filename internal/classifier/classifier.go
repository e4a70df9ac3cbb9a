// Package classifier assigns business risk to detected changes. Heuristics
// always run; an optional LLM oracle refines ambiguous results.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/kamilpajak/redline/internal/llm"
	"github.com/kamilpajak/redline/internal/rules"
	"github.com/kamilpajak/redline/pkg/models"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 30 * time.Second

// Oracle is the LLM tier.
type Oracle interface {
	Assess(ctx context.Context, pair llm.TextPair) (*llm.Assessment, error)
}

// ClassificationDegradedError records an oracle failure. It is logged, never
// returned to callers.
type ClassificationDegradedError struct {
	ChangeID int
	Err      error
}

func (e *ClassificationDegradedError) Error() string {
	return fmt.Sprintf("change %d: classification degraded to heuristics: %v", e.ChangeID, e.Err)
}

func (e *ClassificationDegradedError) Unwrap() error { return e.Err }

// Options configure a Classifier.
type Options struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Classifier is safe for concurrent use.
type Classifier struct {
	heuristics *heuristics
	oracle     Oracle
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates a classifier. oracle may be nil for heuristics only.
func New(r *rules.Rules, oracle Oracle, opts Options) *Classifier {
	if r == nil {
		r = rules.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Classifier{
		heuristics: newHeuristics(r),
		oracle:     oracle,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
}

// Classify returns a classified copy of ch. It always completes: oracle
// failures fall back to the heuristic verdict.
func (c *Classifier) Classify(ctx context.Context, ch models.Change) models.Change {
	v := c.heuristics.evaluate(ch)

	out := ch
	out.Classification = v.class
	out.Explanation = v.explanation
	out.RequiredReviews = slices.Clone(v.reviews)
	out.Signals = slices.Clone(v.signals)
	out.Source = models.SourceHeuristic

	if c.oracle == nil || ch.Synthetic || v.class.Severity() < models.ClassificationSignificant.Severity() {
		return out
	}

	a, err := c.assess(ctx, ch)
	if err != nil {
		degraded := &ClassificationDegradedError{ChangeID: ch.ID, Err: err}
		c.logger.Warn("llm classification failed, using heuristics",
			"change", ch.ID, "error", degraded)
		return out
	}

	out.Classification = models.MaxClassification(a.Classification, v.floor)
	out.Source = models.SourceLLM
	if a.Explanation != "" {
		out.Explanation = a.Explanation
	}
	if len(a.RequiredReviews) > 0 {
		reviews := slices.Clone(a.RequiredReviews)
		if v.floor == models.ClassificationCritical {
			for _, r := range v.reviews {
				if !slices.Contains(reviews, r) {
					reviews = append(reviews, r)
				}
			}
		}
		out.RequiredReviews = reviews
	}
	out.Category = a.Category
	out.FinancialImpact = a.FinancialImpact
	out.Confidence = a.Confidence
	out.ReviewPriority = a.ReviewPriority
	return out
}

func (c *Classifier) assess(ctx context.Context, ch models.Change) (a *llm.Assessment, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("oracle panic: %v", r)
		}
	}()

	a, err = c.oracle.Assess(ctx, llm.TextPair{Deleted: ch.BeforeText, Inserted: ch.AfterText})
	if err != nil {
		return nil, err
	}
	if a == nil || !a.Classification.Valid() {
		return nil, fmt.Errorf("oracle returned no classification")
	}
	return a, nil
}

// ClassifyAll classifies changes in order and returns new records.
func (c *Classifier) ClassifyAll(ctx context.Context, changes []models.Change) []models.Change {
	out := make([]models.Change, len(changes))
	for i, ch := range changes {
		out[i] = c.Classify(ctx, ch)
	}
	return out
}
