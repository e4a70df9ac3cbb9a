package classifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/kamilpajak/redline/internal/llm"
	"github.com/kamilpajak/redline/internal/rules"
	"github.com/kamilpajak/redline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	assessment *llm.Assessment
	err        error
	block      bool
	calls      int
	last       llm.TextPair
}

func (f *fakeOracle) Assess(ctx context.Context, pair llm.TextPair) (*llm.Assessment, error) {
	f.calls++
	f.last = pair
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.assessment, f.err
}

func modification(before, after string) models.Change {
	return models.Change{ID: 1, Kind: models.KindModification, BeforeText: before, AfterText: after}
}

func heuristicsOnly() *Classifier {
	return New(rules.Default(), nil, Options{})
}

func TestClassify_Heuristics(t *testing.T) {
	tests := []struct {
		name    string
		change  models.Change
		want    models.Classification
		reviews []string
		signal  string
	}{
		{
			name:   "placeholder filled with a name",
			change: modification("Vendor: [VENDOR NAME]", "Vendor: Acme Corp"),
			want:   models.ClassificationInconsequential,
			signal: SignalPlaceholderFilled,
		},
		{
			name:    "placeholder filled with money",
			change:  modification("Fee: $[AMOUNT]", "Fee: $50,000"),
			want:    models.ClassificationCritical,
			reviews: []string{models.ReviewFinance},
			signal:  SignalMoneyFilled,
		},
		{
			name:   "concrete replaced by placeholder",
			change: modification("Delivery within 30 days.", "Delivery within [TBD] days."),
			want:   models.ClassificationSignificant,
			signal: SignalPlaceholderAdded,
		},
		{
			name:   "placeholder still unfilled",
			change: modification("Start date: [DATE]", "Start date: ______"),
			want:   models.ClassificationSignificant,
			signal: SignalPlaceholderUnfilled,
		},
		{
			name:   "plain rewording",
			change: modification("Reports are sent monthly.", "Reports are sent every quarter."),
			want:   models.ClassificationSignificant,
		},
		{
			name:    "amount changed",
			change:  modification("Total fee is $10,000.", "Total fee is $12,500."),
			want:    models.ClassificationCritical,
			reviews: []string{models.ReviewFinance},
			signal:  SignalMoneyChanged,
		},
		{
			name:    "party changed",
			change:  modification("Services are provided by Globex Holdings Inc.", "Services are provided by Initech Ltd."),
			want:    models.ClassificationCritical,
			reviews: []string{models.ReviewProcurement},
			signal:  SignalEntityChanged,
		},
		{
			name:    "legal keyword overrides placeholder rule",
			change:  modification("Liability is capped at [AMOUNT].", "Liability is capped at the fees paid."),
			want:    models.ClassificationCritical,
			reviews: []string{models.ReviewLegal},
			signal:  SignalLegal,
		},
		{
			name:    "inserted termination clause",
			change:  models.Change{ID: 1, Kind: models.KindInsertion, AfterText: "Either party may terminate for convenience."},
			want:    models.ClassificationCritical,
			reviews: []string{models.ReviewLegal},
			signal:  SignalLegal,
		},
		{
			name:   "deleted placeholder paragraph",
			change: models.Change{ID: 1, Kind: models.KindDeletion, BeforeText: "[OPTIONAL CLAUSE]"},
			want:   models.ClassificationInconsequential,
		},
		{
			name:   "inserted placeholder paragraph",
			change: models.Change{ID: 1, Kind: models.KindInsertion, AfterText: "Additional terms: TBD"},
			want:   models.ClassificationSignificant,
			signal: SignalPlaceholderAdded,
		},
		{
			name:   "deleted ordinary paragraph",
			change: models.Change{ID: 1, Kind: models.KindDeletion, BeforeText: "Meetings are held weekly."},
			want:   models.ClassificationSignificant,
		},
		{
			name:    "defined term is not a party",
			change:  models.Change{ID: 1, Kind: models.KindInsertion, AfterText: "The Company may assign staff."},
			want:    models.ClassificationSignificant,
		},
		{
			name:    "unreadable document",
			change:  models.Change{ID: 1, Kind: models.KindDeletion, BeforeText: "Document unreadable", Synthetic: true},
			want:    models.ClassificationCritical,
			reviews: []string{models.ReviewLegal},
			signal:  SignalUnreadable,
		},
	}

	c := heuristicsOnly()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), tt.change)

			assert.Equal(t, tt.want, got.Classification)
			assert.NotEmpty(t, got.Explanation)
			assert.Equal(t, models.SourceHeuristic, got.Source)
			for _, r := range tt.reviews {
				assert.True(t, got.HasReview(r), "missing review %s in %v", r, got.RequiredReviews)
			}
			if tt.signal != "" {
				assert.Contains(t, got.Signals, tt.signal)
			}
			assert.NoError(t, got.Validate())
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := heuristicsOnly()
	ch := modification("Vendor: [VENDOR NAME]", "Vendor: Acme Corp")

	first := c.Classify(context.Background(), ch)
	second := c.Classify(context.Background(), first)

	assert.Equal(t, first.Classification, second.Classification)
	assert.Equal(t, first.Explanation, second.Explanation)
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	c := heuristicsOnly()
	ch := modification("Fee: $[AMOUNT]", "Fee: $50,000")

	_ = c.Classify(context.Background(), ch)

	assert.Empty(t, ch.Classification)
	assert.Empty(t, ch.RequiredReviews)
}

func TestClassify_OracleRefines(t *testing.T) {
	conf := 0.8
	o := &fakeOracle{assessment: &llm.Assessment{
		Explanation:     "Reporting cadence reduced; oversight weakens.",
		Category:        "scope",
		Classification:  models.ClassificationInconsequential,
		RequiredReviews: []string{models.ReviewProcurement},
		Confidence:      &conf,
		ReviewPriority:  "low",
	}}
	c := New(rules.Default(), o, Options{})

	got := c.Classify(context.Background(), modification("Reports are sent monthly.", "Reports are sent every quarter."))

	require.Equal(t, 1, o.calls)
	assert.Equal(t, "Reports are sent monthly.", o.last.Deleted)
	assert.Equal(t, "Reports are sent every quarter.", o.last.Inserted)
	assert.Equal(t, models.ClassificationInconsequential, got.Classification, "unproven Significant may be lowered")
	assert.Equal(t, models.SourceLLM, got.Source)
	assert.Equal(t, "Reports are sent monthly.", got.BeforeText)
	assert.Equal(t, "Reporting cadence reduced; oversight weakens.", got.Explanation)
	assert.Equal(t, []string{models.ReviewProcurement}, got.RequiredReviews)
	assert.Equal(t, "scope", got.Category)
	require.NotNil(t, got.Confidence)
	assert.Equal(t, 0.8, *got.Confidence)
}

func TestClassify_OracleCannotDowngradeProvenCritical(t *testing.T) {
	o := &fakeOracle{assessment: &llm.Assessment{
		Explanation:     "Minor wording.",
		Classification:  models.ClassificationInconsequential,
		RequiredReviews: []string{models.ReviewProcurement},
	}}
	c := New(rules.Default(), o, Options{})

	got := c.Classify(context.Background(), modification("The supplier carries insurance of $1,000,000.", "The supplier carries insurance of $500,000."))

	assert.Equal(t, models.ClassificationCritical, got.Classification)
	assert.Equal(t, "Minor wording.", got.Explanation)
	assert.True(t, got.HasReview(models.ReviewLegal))
	assert.True(t, got.HasReview(models.ReviewFinance))
	assert.True(t, got.HasReview(models.ReviewProcurement))
}

func TestClassify_OracleCanEscalate(t *testing.T) {
	o := &fakeOracle{assessment: &llm.Assessment{Classification: models.ClassificationCritical}}
	c := New(rules.Default(), o, Options{})

	got := c.Classify(context.Background(), modification("Reports are sent monthly.", "No reports are sent."))

	assert.Equal(t, models.ClassificationCritical, got.Classification)
	assert.Equal(t, "Wording differs from the template.", got.Explanation, "heuristic explanation kept when oracle gives none")
}

func TestClassify_SkipsOracleForInconsequential(t *testing.T) {
	o := &fakeOracle{assessment: &llm.Assessment{Classification: models.ClassificationCritical}}
	c := New(rules.Default(), o, Options{})

	got := c.Classify(context.Background(), modification("Vendor: [VENDOR NAME]", "Vendor: Acme Corp"))

	assert.Equal(t, 0, o.calls)
	assert.Equal(t, models.ClassificationInconsequential, got.Classification)
}

func TestClassify_SkipsOracleForSynthetic(t *testing.T) {
	o := &fakeOracle{assessment: &llm.Assessment{Classification: models.ClassificationInconsequential}}
	c := New(rules.Default(), o, Options{})

	got := c.Classify(context.Background(), models.Change{ID: 1, Kind: models.KindDeletion, BeforeText: "unreadable", Synthetic: true})

	assert.Equal(t, 0, o.calls)
	assert.Equal(t, models.ClassificationCritical, got.Classification)
}

func TestClassify_OracleFailureFallsBack(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	tests := []struct {
		name   string
		oracle *fakeOracle
		opts   Options
	}{
		{"error", &fakeOracle{err: errors.New("503 service unavailable")}, Options{Logger: logger}},
		{"timeout", &fakeOracle{block: true}, Options{Logger: logger, Timeout: 20 * time.Millisecond}},
		{"empty answer", &fakeOracle{assessment: &llm.Assessment{}}, Options{Logger: logger}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Reset()
			c := New(rules.Default(), tt.oracle, tt.opts)

			got := c.Classify(context.Background(), modification("Total fee is $10,000.", "Total fee is $12,500."))

			assert.Equal(t, models.ClassificationCritical, got.Classification)
			assert.Equal(t, models.SourceHeuristic, got.Source)
			assert.NotEmpty(t, got.Explanation)
			assert.NoError(t, got.Validate())
			assert.Contains(t, logs.String(), "classification degraded")
		})
	}
}

func TestClassifyAll_PreservesOrder(t *testing.T) {
	c := heuristicsOnly()
	in := []models.Change{
		modification("Vendor: [VENDOR NAME]", "Vendor: Acme Corp"),
		modification("Fee: $[AMOUNT]", "Fee: $50,000"),
	}
	in[1].ID = 2

	out := c.ClassifyAll(context.Background(), in)

	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, 2, out[1].ID)
	assert.Equal(t, models.RiskHigh, models.Aggregate(out))
}

func TestClassify_PlaceholderVersusConcrete(t *testing.T) {
	c := heuristicsOnly()

	filled := c.Classify(context.Background(), modification("[Client Name]", "ABC Corp"))
	assert.Equal(t, models.ClassificationInconsequential, filled.Classification)

	swapped := c.Classify(context.Background(), modification("ABC Corp", "XYZ Inc"))
	assert.NotEqual(t, models.ClassificationInconsequential, swapped.Classification)
	assert.Equal(t, models.ClassificationCritical, swapped.Classification)
}
