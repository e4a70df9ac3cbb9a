package models

// RiskLevel is the overall risk of a contract.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Aggregate applies the minimum-criticality rule: the contract is as risky as
// its single worst change. Counts never matter.
func Aggregate(changes []Change) RiskLevel {
	worst := Classification("")
	for _, c := range changes {
		worst = MaxClassification(worst, c.Classification)
		if worst == ClassificationCritical {
			return RiskHigh
		}
	}
	if worst == ClassificationSignificant {
		return RiskMedium
	}
	return RiskLow
}

// Counts tallies changes by classification.
type Counts struct {
	Critical        int `json:"critical"`
	Significant     int `json:"significant"`
	Inconsequential int `json:"inconsequential"`
	Total           int `json:"total"`
}

// Tally counts the changes per classification.
func Tally(changes []Change) Counts {
	var c Counts
	for _, ch := range changes {
		switch ch.Classification {
		case ClassificationCritical:
			c.Critical++
		case ClassificationSignificant:
			c.Significant++
		case ClassificationInconsequential:
			c.Inconsequential++
		}
	}
	c.Total = len(changes)
	return c
}

// Of returns the count for a single classification.
func (c Counts) Of(cl Classification) int {
	switch cl {
	case ClassificationCritical:
		return c.Critical
	case ClassificationSignificant:
		return c.Significant
	case ClassificationInconsequential:
		return c.Inconsequential
	default:
		return 0
	}
}
