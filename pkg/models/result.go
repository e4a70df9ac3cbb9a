package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metadata records how an analysis was produced.
type Metadata struct {
	TemplateName string `json:"template_name,omitempty"`
	MatchRule    string `json:"match_rule,omitempty"`
	MatchKeyword string `json:"match_keyword,omitempty"`
	LLMProvider  string `json:"llm_provider,omitempty"`
	LLMModel     string `json:"llm_model,omitempty"`
}

// AnalysisResult aggregates one contract-versus-template comparison.
// OverallRiskLevel and Counts are always derived from Changes.
type AnalysisResult struct {
	ID               string    `json:"id"`
	ContractRef      string    `json:"contract_ref"`
	TemplateRef      string    `json:"template_ref"`
	Changes          []Change  `json:"changes"`
	SimilarityScore  float64   `json:"similarity_score"`
	OverallRiskLevel RiskLevel `json:"overall_risk_level"`
	Counts           Counts    `json:"counts"`
	CreatedAt        time.Time `json:"created_at"`
	Metadata         Metadata  `json:"metadata"`
}

// NewAnalysisResult validates every change and derives risk level and counts.
// The changes slice is copied so the result owns its list.
func NewAnalysisResult(contractRef, templateRef string, similarity float64, changes []Change, meta Metadata) (*AnalysisResult, error) {
	if similarity < 0 || similarity > 100 {
		return nil, fmt.Errorf("similarity score %.2f out of range [0,100]", similarity)
	}
	owned := make([]Change, len(changes))
	copy(owned, changes)
	for _, c := range owned {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	r := &AnalysisResult{
		ID:              uuid.New().String(),
		ContractRef:     contractRef,
		TemplateRef:     templateRef,
		Changes:         owned,
		SimilarityScore: similarity,
		CreatedAt:       time.Now().UTC(),
		Metadata:        meta,
	}
	r.derive()
	return r, nil
}

func (r *AnalysisResult) derive() {
	r.OverallRiskLevel = Aggregate(r.Changes)
	r.Counts = Tally(r.Changes)
}

// ChangesByClassification returns the changes of one tier, in document order.
func (r *AnalysisResult) ChangesByClassification(cl Classification) []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Classification == cl {
			out = append(out, c)
		}
	}
	return out
}

// UnmarshalJSON decodes a snapshot and re-derives risk level and counts, so a
// stored value can never disagree with its changes.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	type plain AnalysisResult
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = AnalysisResult(p)
	for _, c := range r.Changes {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid snapshot %s: %w", r.ID, err)
		}
	}
	r.derive()
	return nil
}
