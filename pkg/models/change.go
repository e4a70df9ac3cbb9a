package models

import (
	"fmt"
	"strings"
)

// ChangeKind describes how a paragraph differs between template and contract.
type ChangeKind string

const (
	KindInsertion    ChangeKind = "insertion"
	KindDeletion     ChangeKind = "deletion"
	KindModification ChangeKind = "modification"
)

// Source records which tier produced the final classification.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceLLM       Source = "llm"
)

// Change is one detected difference between template and contract.
type Change struct {
	ID              int            `json:"id"`
	Kind            ChangeKind     `json:"kind"`
	BeforeText      string         `json:"before_text"`
	AfterText       string         `json:"after_text"`
	SectionContext  string         `json:"section_context,omitempty"`
	Similarity      float64        `json:"similarity"`
	Classification  Classification `json:"classification"`
	Explanation     string         `json:"explanation"`
	RequiredReviews []string       `json:"required_reviews,omitempty"`

	// Enrichment, set by the heuristic or LLM tier when available.
	Signals         []string `json:"signals,omitempty"`
	Source          Source   `json:"source,omitempty"`
	Category        string   `json:"category,omitempty"`
	FinancialImpact string   `json:"financial_impact,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
	ReviewPriority  string   `json:"review_priority,omitempty"`

	// Synthetic marks the placeholder change emitted for an unreadable document.
	Synthetic bool `json:"synthetic,omitempty"`
}

// NewChange builds an unclassified change and checks the before/after invariant for kind.
func NewChange(kind ChangeKind, before, after string) (Change, error) {
	c := Change{Kind: kind, BeforeText: before, AfterText: after}
	if err := c.validateShape(); err != nil {
		return Change{}, err
	}
	return c, nil
}

func (c Change) validateShape() error {
	before := strings.TrimSpace(c.BeforeText) != ""
	after := strings.TrimSpace(c.AfterText) != ""
	switch c.Kind {
	case KindInsertion:
		if before || !after {
			return fmt.Errorf("insertion %d must have empty before_text and non-empty after_text", c.ID)
		}
	case KindDeletion:
		if !before || after {
			return fmt.Errorf("deletion %d must have non-empty before_text and empty after_text", c.ID)
		}
	case KindModification:
		if !before || !after {
			return fmt.Errorf("modification %d must have non-empty before_text and after_text", c.ID)
		}
	default:
		return fmt.Errorf("change %d has unknown kind %q", c.ID, c.Kind)
	}
	if c.Similarity < 0 || c.Similarity > 1 {
		return fmt.Errorf("change %d similarity %.3f out of range [0,1]", c.ID, c.Similarity)
	}
	return nil
}

// Final reports whether the change has been classified.
func (c Change) Final() bool {
	return c.Classification.Valid()
}

// Validate checks the shape invariant and that a classification has been assigned.
func (c Change) Validate() error {
	if err := c.validateShape(); err != nil {
		return err
	}
	if !c.Final() {
		return fmt.Errorf("change %d is not classified", c.ID)
	}
	return nil
}

// HasReview reports whether tag is among the required reviews.
func (c Change) HasReview(tag string) bool {
	for _, r := range c.RequiredReviews {
		if r == tag {
			return true
		}
	}
	return false
}
