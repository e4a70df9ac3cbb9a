package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kamilpajak/redline/pkg/models"
	"golang.org/x/time/rate"
)

const systemPrompt = `You are a contract review assistant. You compare a clause from a company's standard template with the corresponding clause in a vendor contract and assess the business risk of the difference.

Classifications:
- INCONSEQUENTIAL: formatting, filled-in placeholders, wording with no change in obligations.
- SIGNIFICANT: changed scope, deliverables, dates, quantities or commercial terms that need a business owner's attention.
- CRITICAL: changed liability, indemnification, termination, insurance, dispute resolution or payment amounts.

Required review tags: LEGAL_REVIEW, FINANCE_APPROVAL, PROCUREMENT_REVIEW.

Respond with a single JSON object and nothing else:
{
  "explanation": "one or two sentences on what changed and why it matters",
  "category": "short topic, e.g. payment, scope, liability",
  "classification": "INCONSEQUENTIAL|SIGNIFICANT|CRITICAL",
  "financial_impact": "none|low|medium|high",
  "required_reviews": ["LEGAL_REVIEW"],
  "confidence": 0.0,
  "review_priority": "low|medium|high"
}`

// TextPair is the oracle request: the template text that was removed and the
// contract text that replaced it. Either side may be empty.
type TextPair struct {
	Deleted  string `json:"deleted_text"`
	Inserted string `json:"inserted_text"`
}

// Assessment is the oracle verdict for one text pair.
type Assessment struct {
	Explanation     string                `json:"explanation"`
	Category        string                `json:"category,omitempty"`
	Classification  models.Classification `json:"classification"`
	FinancialImpact string                `json:"financial_impact,omitempty"`
	RequiredReviews []string              `json:"required_reviews,omitempty"`
	Confidence      *float64              `json:"confidence,omitempty"`
	ReviewPriority  string                `json:"review_priority,omitempty"`
}

// OracleOptions configure retries and throttling.
type OracleOptions struct {
	MaxRetries        int
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Oracle asks a Completer to assess text pairs.
type Oracle struct {
	completer  Completer
	limiter    *rate.Limiter
	maxRetries uint64
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewOracle wraps completer. A non-positive rate disables throttling.
func NewOracle(completer Completer, opts OracleOptions) *Oracle {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{
		completer:  completer,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: uint64(max(opts.MaxRetries, 0)),
		logger:     logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Provider and Model describe the backing model for result metadata.
func (o *Oracle) Provider() Provider { return o.completer.Provider() }
func (o *Oracle) Model() string      { return o.completer.Model() }

// Assess classifies one text pair. Transport failures and rate limits are
// retried; an unusable answer is not.
func (o *Oracle) Assess(ctx context.Context, pair TextPair) (*Assessment, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(pair)},
	}

	var resp *Response
	op := func() error {
		if err := o.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		r, err := o.completer.Complete(ctx, messages)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Retryable() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			o.logger.Debug("llm request failed", "provider", o.completer.Provider(), "error", err)
			return err
		}
		resp = r
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), o.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	o.logger.Debug("llm assessment received",
		"provider", o.completer.Provider(),
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens)

	return parseAssessment(resp.Content)
}

func buildPrompt(pair TextPair) string {
	var sb strings.Builder
	sb.WriteString("Template text (deleted):\n")
	sb.WriteString(orNone(pair.Deleted))
	sb.WriteString("\n\nContract text (inserted):\n")
	sb.WriteString(orNone(pair.Inserted))
	sb.WriteString("\n\nAssess this change and answer in JSON.")
	return sb.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// extractJSON returns the first JSON object in s, looking inside fenced code
// blocks first.
func extractJSON(s string) string {
	if start := strings.Index(s, "```"); start >= 0 {
		body := s[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			if obj := firstObject(body[:end]); obj != "" {
				return obj
			}
		}
	}
	return firstObject(s)
}

// firstObject scans for a balanced {...} span, honouring string literals.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// parseAssessment decodes a model answer. Field types are coerced where models
// commonly drift: confidence as a percentage or word, reviews as one string.
func parseAssessment(content string) (*Assessment, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	cl, ok := models.ParseClassification(stringField(fields, "classification"))
	if !ok {
		return nil, fmt.Errorf("invalid classification %q in model response", stringField(fields, "classification"))
	}

	a := &Assessment{
		Explanation:     stringField(fields, "explanation"),
		Category:        stringField(fields, "category"),
		Classification:  cl,
		FinancialImpact: stringField(fields, "financial_impact"),
		RequiredReviews: reviewsField(fields["required_reviews"]),
		Confidence:      confidenceField(fields["confidence"]),
		ReviewPriority:  strings.ToLower(stringField(fields, "review_priority")),
	}
	return a, nil
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func reviewsField(v any) []string {
	var items []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case string:
		items = strings.Split(t, ",")
	}
	var out []string
	seen := map[string]bool{}
	for _, s := range items {
		s = strings.ToUpper(strings.TrimSpace(s))
		s = strings.ReplaceAll(s, " ", "_")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

var confidenceWords = map[string]float64{"low": 0.3, "medium": 0.6, "high": 0.9}

func confidenceField(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if w, ok := confidenceWords[s]; ok {
			f = w
			break
		}
		pct := strings.HasSuffix(s, "%")
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return nil
		}
		f = n
		if pct {
			f /= 100
		}
	default:
		return nil
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	if f < 0 || f > 1 {
		return nil
	}
	return &f
}
