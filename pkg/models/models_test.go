package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classified(kind ChangeKind, before, after string, cl Classification) Change {
	return Change{Kind: kind, BeforeText: before, AfterText: after, Classification: cl, Explanation: "x"}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		in   []Classification
		want RiskLevel
	}{
		{"no changes", nil, RiskLow},
		{"all inconsequential", []Classification{ClassificationInconsequential, ClassificationInconsequential}, RiskLow},
		{"one significant", []Classification{ClassificationInconsequential, ClassificationSignificant}, RiskMedium},
		{"one critical", []Classification{ClassificationSignificant, ClassificationCritical, ClassificationInconsequential}, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var changes []Change
			for _, cl := range tt.in {
				changes = append(changes, classified(KindModification, "a", "b", cl))
			}
			assert.Equal(t, tt.want, Aggregate(changes))
		})
	}
}

func TestAggregate_Monotonicity(t *testing.T) {
	sets := [][]Classification{
		{},
		{ClassificationInconsequential},
		{ClassificationSignificant, ClassificationInconsequential},
		{ClassificationCritical},
	}
	for _, set := range sets {
		var changes []Change
		for _, cl := range set {
			changes = append(changes, classified(KindModification, "a", "b", cl))
		}
		base := Aggregate(changes)

		withMinor := append(append([]Change{}, changes...), classified(KindInsertion, "", "b", ClassificationInconsequential))
		assert.Equal(t, base, Aggregate(withMinor), "adding an inconsequential change must not change risk")

		withCritical := append(append([]Change{}, changes...), classified(KindDeletion, "a", "", ClassificationCritical))
		assert.Equal(t, RiskHigh, Aggregate(withCritical))
	}
}

func TestAggregate_OneCriticalNotDiluted(t *testing.T) {
	changes := []Change{classified(KindModification, "Fee: $1", "Fee: $2", ClassificationCritical)}
	for i := 0; i < 100; i++ {
		changes = append(changes, classified(KindModification, "[X]", "Y", ClassificationInconsequential))
	}
	assert.Equal(t, RiskHigh, Aggregate(changes))
}

func TestNewChange_Invariants(t *testing.T) {
	_, err := NewChange(KindInsertion, "", "new text")
	require.NoError(t, err)
	_, err = NewChange(KindInsertion, "old", "new")
	assert.Error(t, err)
	_, err = NewChange(KindDeletion, "old", "")
	require.NoError(t, err)
	_, err = NewChange(KindDeletion, "", "")
	assert.Error(t, err)
	_, err = NewChange(KindModification, "old", "")
	assert.Error(t, err)
	_, err = NewChange("rename", "a", "b")
	assert.Error(t, err)
}

func TestChange_ValidateRequiresClassification(t *testing.T) {
	c, err := NewChange(KindModification, "a", "b")
	require.NoError(t, err)
	assert.False(t, c.Final())
	assert.Error(t, c.Validate())

	c.Classification = ClassificationSignificant
	assert.NoError(t, c.Validate())
}

func TestParseClassification(t *testing.T) {
	cl, ok := ParseClassification(" CRITICAL ")
	assert.True(t, ok)
	assert.Equal(t, ClassificationCritical, cl)

	cl, ok = ParseClassification("significant")
	assert.True(t, ok)
	assert.Equal(t, ClassificationSignificant, cl)

	_, ok = ParseClassification("unknown")
	assert.False(t, ok)
}

func TestNewAnalysisResult_DerivesRiskAndCounts(t *testing.T) {
	changes := []Change{
		classified(KindModification, "Vendor: [VENDOR NAME]", "Vendor: Acme Corp", ClassificationInconsequential),
		classified(KindModification, "Fee: $[AMOUNT]", "Fee: $50,000", ClassificationCritical),
	}
	r, err := NewAnalysisResult("contract.docx", "template.docx", 42.5, changes, Metadata{})
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, RiskHigh, r.OverallRiskLevel)
	assert.Equal(t, Counts{Critical: 1, Inconsequential: 1, Total: 2}, r.Counts)
	assert.Len(t, r.ChangesByClassification(ClassificationCritical), 1)

	changes[0].Classification = ClassificationCritical
	assert.Equal(t, ClassificationInconsequential, r.Changes[0].Classification, "result must own its change list")
}

func TestNewAnalysisResult_RejectsUnclassified(t *testing.T) {
	_, err := NewAnalysisResult("c", "t", 10, []Change{{Kind: KindInsertion, AfterText: "x"}}, Metadata{})
	assert.Error(t, err)

	_, err = NewAnalysisResult("c", "t", 120, nil, Metadata{})
	assert.Error(t, err)
}

func TestAnalysisResult_UnmarshalRecomputesRisk(t *testing.T) {
	r, err := NewAnalysisResult("c", "t", 90, []Change{
		classified(KindDeletion, "Liability is capped.", "", ClassificationCritical),
	}, Metadata{MatchRule: "vendor"})
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{"contract_ref", "template_ref", "changes", "similarity_score", "overall_risk_level", "counts"} {
		assert.Contains(t, raw, field)
	}

	// Tamper with the stored risk level; decoding must re-derive it.
	raw["overall_risk_level"] = "LOW"
	raw["counts"] = map[string]any{"critical": 0}
	tampered, err := json.Marshal(raw)
	require.NoError(t, err)

	var decoded AnalysisResult
	require.NoError(t, json.Unmarshal(tampered, &decoded))
	assert.Equal(t, RiskHigh, decoded.OverallRiskLevel)
	assert.Equal(t, 1, decoded.Counts.Critical)
	assert.Equal(t, "vendor", decoded.Metadata.MatchRule)
}

func TestAnalysisResult_UnmarshalRejectsBrokenChange(t *testing.T) {
	data := []byte(`{"id":"x","changes":[{"id":1,"kind":"insertion","before_text":"a","after_text":"b","classification":"Critical"}]}`)
	var r AnalysisResult
	assert.Error(t, json.Unmarshal(data, &r))
}
