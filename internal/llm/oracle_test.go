package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/kamilpajak/redline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	calls   atomic.Int32
	answers []func() (*Response, error)
	last    []Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (*Response, error) {
	n := int(f.calls.Add(1)) - 1
	f.last = messages
	if n >= len(f.answers) {
		n = len(f.answers) - 1
	}
	return f.answers[n]()
}

func (f *fakeCompleter) Provider() Provider { return ProviderOpenAI }
func (f *fakeCompleter) Model() string      { return "fake" }

func reply(content string) func() (*Response, error) {
	return func() (*Response, error) { return &Response{Content: content, Model: "fake"}, nil }
}

func fail(err error) func() (*Response, error) {
	return func() (*Response, error) { return nil, err }
}

func newTestOracle(c Completer, retries int) *Oracle {
	o := NewOracle(c, OracleOptions{MaxRetries: retries})
	o.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return o
}

const criticalAnswer = "```json\n" + `{
  "explanation": "The fee cap was removed.",
  "category": "payment",
  "classification": "CRITICAL",
  "financial_impact": "high",
  "required_reviews": ["FINANCE_APPROVAL", "legal review"],
  "confidence": "85%",
  "review_priority": "HIGH"
}` + "\n```"

func TestOracle_Assess(t *testing.T) {
	fc := &fakeCompleter{answers: []func() (*Response, error){reply(criticalAnswer)}}
	o := newTestOracle(fc, 2)

	a, err := o.Assess(context.Background(), TextPair{Deleted: "Fee: capped", Inserted: "Fee: uncapped"})
	require.NoError(t, err)

	assert.Equal(t, models.ClassificationCritical, a.Classification)
	assert.Equal(t, "The fee cap was removed.", a.Explanation)
	assert.Equal(t, "payment", a.Category)
	assert.Equal(t, []string{"FINANCE_APPROVAL", "LEGAL_REVIEW"}, a.RequiredReviews)
	require.NotNil(t, a.Confidence)
	assert.InDelta(t, 0.85, *a.Confidence, 1e-9)
	assert.Equal(t, "high", a.ReviewPriority)

	require.Len(t, fc.last, 2)
	assert.Contains(t, fc.last[1].Content, "Fee: capped")
	assert.Contains(t, fc.last[1].Content, "Fee: uncapped")
}

func TestOracle_RetriesTransientErrors(t *testing.T) {
	fc := &fakeCompleter{answers: []func() (*Response, error){
		fail(&APIError{StatusCode: 503, Body: "unavailable"}),
		fail(errors.New("connection reset")),
		reply(`{"classification": "significant", "explanation": "scope changed"}`),
	}}
	o := newTestOracle(fc, 3)

	a, err := o.Assess(context.Background(), TextPair{Inserted: "New scope."})
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationSignificant, a.Classification)
	assert.Equal(t, int32(3), fc.calls.Load())
}

func TestOracle_GivesUpAfterMaxRetries(t *testing.T) {
	fc := &fakeCompleter{answers: []func() (*Response, error){fail(&APIError{StatusCode: 500})}}
	o := newTestOracle(fc, 2)

	_, err := o.Assess(context.Background(), TextPair{Deleted: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(3), fc.calls.Load())
}

func TestOracle_DoesNotRetryClientErrors(t *testing.T) {
	fc := &fakeCompleter{answers: []func() (*Response, error){fail(&APIError{StatusCode: 401, Body: "bad key"})}}
	o := newTestOracle(fc, 5)

	_, err := o.Assess(context.Background(), TextPair{Deleted: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int32(1), fc.calls.Load())
}

func TestOracle_UnparseableAnswer(t *testing.T) {
	fc := &fakeCompleter{answers: []func() (*Response, error){reply("I think this is fine.")}}
	o := newTestOracle(fc, 3)

	_, err := o.Assess(context.Background(), TextPair{Deleted: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), fc.calls.Load())
}

func TestOracle_CancelledContext(t *testing.T) {
	fc := &fakeCompleter{answers: []func() (*Response, error){fail(context.Canceled)}}
	o := newTestOracle(fc, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Assess(ctx, TextPair{Deleted: "x"})
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain JSON", `{"classification": "CRITICAL"}`, `{"classification": "CRITICAL"}`},
		{"markdown code block", "Here:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"plain code block", "Result:\n```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding text", `The answer is {"a": 1} as shown.`, `{"a": 1}`},
		{"nested", `{"outer": {"inner": "value"}}`, `{"outer": {"inner": "value"}}`},
		{"brace inside string", `{"explanation": "uses } and {"}`, `{"explanation": "uses } and {"}`},
		{"escaped quote", `{"explanation": "the \"fee\" }"} tail`, `{"explanation": "the \"fee\" }"}`},
		{"no JSON", "No JSON here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestParseAssessment(t *testing.T) {
	t.Run("numeric confidence as percentage", func(t *testing.T) {
		a, err := parseAssessment(`{"classification": "Inconsequential", "confidence": 70}`)
		require.NoError(t, err)
		require.NotNil(t, a.Confidence)
		assert.InDelta(t, 0.7, *a.Confidence, 1e-9)
	})

	t.Run("confidence word", func(t *testing.T) {
		a, err := parseAssessment(`{"classification": "critical", "confidence": "high"}`)
		require.NoError(t, err)
		require.NotNil(t, a.Confidence)
		assert.InDelta(t, 0.9, *a.Confidence, 1e-9)
	})

	t.Run("out of range confidence dropped", func(t *testing.T) {
		a, err := parseAssessment(`{"classification": "critical", "confidence": 250}`)
		require.NoError(t, err)
		assert.Nil(t, a.Confidence)
	})

	t.Run("reviews as comma string", func(t *testing.T) {
		a, err := parseAssessment(`{"classification": "significant", "required_reviews": "legal_review, finance_approval, LEGAL_REVIEW"}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"LEGAL_REVIEW", "FINANCE_APPROVAL"}, a.RequiredReviews)
	})

	t.Run("unknown classification", func(t *testing.T) {
		_, err := parseAssessment(`{"classification": "maybe"}`)
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseAssessment(`{"classification": "critical",}`)
		assert.Error(t, err)
	})
}
