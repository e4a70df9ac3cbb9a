package models

import "strings"

// Classification is the business risk tier assigned to a Change.
type Classification string

const (
	ClassificationInconsequential Classification = "Inconsequential"
	ClassificationSignificant     Classification = "Significant"
	ClassificationCritical        Classification = "Critical"
)

// Classifications lists all tiers from most to least severe.
var Classifications = []Classification{
	ClassificationCritical,
	ClassificationSignificant,
	ClassificationInconsequential,
}

// Severity orders classifications; unset or unknown values rank below Inconsequential.
func (c Classification) Severity() int {
	switch c {
	case ClassificationInconsequential:
		return 1
	case ClassificationSignificant:
		return 2
	case ClassificationCritical:
		return 3
	default:
		return 0
	}
}

// Valid reports whether c is one of the three known tiers.
func (c Classification) Valid() bool {
	return c.Severity() > 0
}

// ParseClassification accepts any casing and a few common synonyms used by LLMs.
func ParseClassification(s string) (Classification, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inconsequential", "minor", "low":
		return ClassificationInconsequential, true
	case "significant", "moderate", "medium":
		return ClassificationSignificant, true
	case "critical", "high", "severe":
		return ClassificationCritical, true
	default:
		return "", false
	}
}

// MaxClassification returns the more severe of a and b.
func MaxClassification(a, b Classification) Classification {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// Review tags attached to changes that need a stakeholder sign-off.
const (
	ReviewLegal       = "LEGAL_REVIEW"
	ReviewFinance     = "FINANCE_APPROVAL"
	ReviewProcurement = "PROCUREMENT_REVIEW"
)
