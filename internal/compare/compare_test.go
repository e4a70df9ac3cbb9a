package compare

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/kamilpajak/redline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	servicesTemplate = []string{"1. SERVICES", "Vendor: [VENDOR NAME]", "Fee: $[AMOUNT]"}
	servicesContract = []string{"1. SERVICES", "Vendor: Acme Corp", "Fee: $50,000"}
)

func TestCompare_Identical(t *testing.T) {
	got := New(DefaultOptions()).Compare(servicesTemplate, servicesTemplate)

	assert.Empty(t, got.Changes)
	assert.Equal(t, 100.0, got.Similarity)
}

func TestCompare_FilledTemplate(t *testing.T) {
	got := New(DefaultOptions()).Compare(servicesTemplate, servicesContract)

	require.Len(t, got.Changes, 2)

	vendor := got.Changes[0]
	assert.Equal(t, 1, vendor.ID)
	assert.Equal(t, models.KindModification, vendor.Kind)
	assert.Equal(t, "Vendor: [VENDOR NAME]", vendor.BeforeText)
	assert.Equal(t, "Vendor: Acme Corp", vendor.AfterText)
	assert.Equal(t, "1. SERVICES", vendor.SectionContext)

	fee := got.Changes[1]
	assert.Equal(t, 2, fee.ID)
	assert.Equal(t, models.KindModification, fee.Kind)
	assert.Equal(t, "Fee: $[AMOUNT]", fee.BeforeText)
	assert.Equal(t, "Fee: $50,000", fee.AfterText)
	assert.InDelta(t, 0.4, fee.Similarity, 0.001)

	assert.Greater(t, got.Similarity, 0.0)
	assert.Less(t, got.Similarity, 100.0)
}

func TestCompare_InsertionAndDeletion(t *testing.T) {
	tmpl := []string{"1. TERM", "The agreement runs for one year.", "2. PAYMENT", "Invoices are due in 30 days."}
	doc := []string{"1. TERM", "The agreement runs for one year.", "Vendor may subcontract without notice.", "2. PAYMENT"}

	got := New(DefaultOptions()).Compare(tmpl, doc)

	require.Len(t, got.Changes, 2)
	assert.Equal(t, models.KindInsertion, got.Changes[0].Kind)
	assert.Equal(t, "Vendor may subcontract without notice.", got.Changes[0].AfterText)
	assert.Equal(t, "1. TERM", got.Changes[0].SectionContext)
	assert.Equal(t, models.KindDeletion, got.Changes[1].Kind)
	assert.Equal(t, "Invoices are due in 30 days.", got.Changes[1].BeforeText)
	assert.Equal(t, "2. PAYMENT", got.Changes[1].SectionContext)
}

func TestCompare_IgnoresFormattingNoise(t *testing.T) {
	tmpl := []string{"The Vendor’s  obligations", "Payment terms"}
	doc := []string{"the vendor's obligations", "  Payment   terms "}

	got := New(DefaultOptions()).Compare(tmpl, doc)

	assert.Empty(t, got.Changes)
	assert.Equal(t, 100.0, got.Similarity)
}

func TestCompare_CaseSensitive(t *testing.T) {
	got := New(Options{CaseSensitive: true}).Compare([]string{"Payment terms"}, []string{"PAYMENT TERMS"})

	require.Len(t, got.Changes, 1)
	assert.Equal(t, models.KindModification, got.Changes[0].Kind)
}

func TestCompare_DropsPunctuationOnlyEdits(t *testing.T) {
	tmpl := []string{"Payment is due within thirty days of invoice.", "Fee: $50,000"}
	doc := []string{"Payment is due within thirty days of invoice", "Fee: $50,000"}

	got := New(DefaultOptions()).Compare(tmpl, doc)

	assert.Empty(t, got.Changes)
	assert.Equal(t, 100.0, got.Similarity)
}

func TestCompare_KeepsNearIdenticalEditsThatMatter(t *testing.T) {
	tests := []struct {
		name     string
		template string
		contract string
	}{
		{"amount separator", "Fee: $50,000 per year.", "Fee: $50.000 per year."},
		{"percentage", "Late payments accrue 5% interest.", "Late payments accrue 5 interest."},
		{"reordered words", "Vendor indemnifies Client.", "Client indemnifies Vendor."},
		{"word boundary", "Notify the rapist.", "Notify therapist."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(DefaultOptions()).Compare([]string{tt.template}, []string{tt.contract})

			require.Len(t, got.Changes, 1)
			assert.Equal(t, models.KindModification, got.Changes[0].Kind)
		})
	}
}

func TestCompare_MaxSimilarityFloor(t *testing.T) {
	tmpl := []string{"The supplier shall deliver the goods to the site within ten working days of the order."}
	doc := []string{"The supplier shall deliver the goods to the site within ten business days of the order."}

	got := New(DefaultOptions()).Compare(tmpl, doc)
	require.Len(t, got.Changes, 1)

	got = New(Options{MaxSimilarity: 0.9}).Compare(tmpl, doc)
	assert.Empty(t, got.Changes)
}

func TestCompare_MinCharsDropsShortFragments(t *testing.T) {
	tmpl := []string{"Clause one applies.", "Clause two applies."}
	doc := []string{"Clause one applies.", "7", "Clause two applies."}

	got := New(Options{MinChars: 3}).Compare(tmpl, doc)
	assert.Empty(t, got.Changes)
	assert.Less(t, got.Similarity, 100.0)

	got = New(DefaultOptions()).Compare(tmpl, doc)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, "7", got.Changes[0].AfterText)
}

func TestCompare_EmptyContract(t *testing.T) {
	got := New(DefaultOptions()).Compare(servicesTemplate, []string{"", "   "})

	require.Len(t, got.Changes, 1)
	ch := got.Changes[0]
	assert.True(t, ch.Synthetic)
	assert.Equal(t, models.KindDeletion, ch.Kind)
	assert.Equal(t, UnreadableContract, ch.BeforeText)
	assert.Empty(t, ch.AfterText)
	assert.Equal(t, 0.0, got.Similarity)
}

func TestCompare_EmptyTemplate(t *testing.T) {
	got := New(DefaultOptions()).Compare(nil, servicesContract)

	require.Len(t, got.Changes, 1)
	assert.True(t, got.Changes[0].Synthetic)
	assert.Equal(t, models.KindInsertion, got.Changes[0].Kind)
	assert.Equal(t, UnreadableTemplate, got.Changes[0].AfterText)
}

func TestCompare_ChangesSatisfyShape(t *testing.T) {
	got := New(DefaultOptions()).Compare(
		[]string{"A", "B clause text", "C", "D removed entirely"},
		[]string{"A", "B clause text changed", "X brand new", "C"},
	)
	for _, ch := range got.Changes {
		ch.Classification = models.ClassificationSignificant
		assert.NoError(t, ch.Validate(), "change %d", ch.ID)
	}
}

// Every paragraph on either side is accounted for exactly once: unchanged,
// paired into a modification, or reported as an insertion or deletion.
func TestAlign_Completeness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
	para := func() string {
		n := 1 + rng.Intn(4)
		s := vocab[rng.Intn(len(vocab))]
		for i := 1; i < n; i++ {
			s += " " + vocab[rng.Intn(len(vocab))]
		}
		return s
	}
	e := New(DefaultOptions())

	for round := 0; round < 200; round++ {
		tmpl := make([]string, rng.Intn(12))
		for i := range tmpl {
			tmpl[i] = para()
		}
		doc := make([]string, rng.Intn(12))
		for i := range doc {
			if i < len(tmpl) && rng.Intn(2) == 0 {
				doc[i] = tmpl[i]
			} else {
				doc[i] = para()
			}
		}

		tk, ck := make([]string, len(tmpl)), make([]string, len(doc))
		for i, p := range tmpl {
			tk[i] = e.key(p)
		}
		for i, p := range doc {
			ck[i] = e.key(p)
		}
		ops := e.align(tmpl, doc, lcsOps(tk, ck))

		seenT := make([]int, len(tmpl))
		seenC := make([]int, len(doc))
		lastT, lastC := -1, -1
		for _, o := range ops {
			if o.t >= 0 {
				seenT[o.t]++
				require.Greater(t, o.t, lastT, "round %d: template order", round)
				lastT = o.t
			}
			if o.c >= 0 {
				seenC[o.c]++
				require.Greater(t, o.c, lastC, "round %d: contract order", round)
				lastC = o.c
			}
		}
		for i, n := range seenT {
			require.Equal(t, 1, n, fmt.Sprintf("round %d: template paragraph %d", round, i))
		}
		for i, n := range seenC {
			require.Equal(t, 1, n, fmt.Sprintf("round %d: contract paragraph %d", round, i))
		}
	}
}

func TestSequenceSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, sequenceSimilarity(nil, nil))
	assert.Equal(t, 1.0, sequenceSimilarity(tokens("Fee, due."), tokens("fee due")))
	assert.InDelta(t, 0.5, sequenceSimilarity([]string{"a", "b"}, []string{"b", "a"}), 1e-9)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("Fee due", "fee DUE"))
	assert.Equal(t, 0.0, similarity("alpha", "beta"))
	assert.Equal(t, 0.0, similarity("", "beta"))
	assert.InDelta(t, 0.5, similarity("a b", "a c"), 1e-9)
}

func TestIsHeading(t *testing.T) {
	cases := map[string]bool{
		"1. SERVICES":                      true,
		"2.1 Payment Terms":                true,
		"Section 4 Confidentiality":        true,
		"TERMINATION":                      true,
		"Fee: $50,000":                     false,
		"1. The vendor shall deliver.":     false,
		"12 months notice":                 false,
		"Vendor: Acme Corp":                false,
		"":                                 false,
	}
	for in, want := range cases {
		assert.Equal(t, want, isHeading(in), in)
	}
}
