package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default()

	require.Len(t, r.Vendors, 3)
	assert.Equal(t, "epam", r.Vendors[0].Token)
	assert.Contains(t, r.SOWKeywords, "statement of work")
	assert.Contains(t, r.ChangeOrderKeywords, " co ")
	assert.NotEmpty(t, r.Placeholders)
	assert.NotEmpty(t, r.Legal)
	assert.NotEmpty(t, r.Money)
}

func TestDefault_Patterns(t *testing.T) {
	r := Default()

	placeholders := []string{"[Client Name]", "<date>", "{amount}", "INSERT NAME", "Signed: ____", "Paid on ...", "tbd", "To Be Determined", "fill in"}
	for _, p := range placeholders {
		assert.True(t, MatchAny(r.Placeholders, p), "expected placeholder: %q", p)
	}
	assert.False(t, MatchAny(r.Placeholders, "Acme Corp"))

	assert.True(t, MatchAny(r.Legal, "Either party may terminate this Agreement"))
	assert.True(t, MatchAny(r.Legal, "INDEMNIFICATION"))
	assert.False(t, MatchAny(r.Legal, "The vendor shall deliver reports monthly."))

	assert.Equal(t, []string{"$50,000"}, FindAll(r.Money, "Fee: $50,000"))
	assert.True(t, MatchAny(r.Money, "a total of 1,200 USD"))
	assert.True(t, MatchAny(r.Money, "EUR 300"))
	assert.False(t, MatchAny(r.Money, "within 30 days"))
}

func TestLoad_OverridesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vendors:
  - token: Globex
    keywords: ["Globex Corporation"]
`), 0o644))

	r, err := Load(path)
	require.NoError(t, err)

	require.Len(t, r.Vendors, 1)
	assert.Equal(t, "globex", r.Vendors[0].Token)
	assert.Equal(t, []string{"globex corporation"}, r.Vendors[0].Keywords)
	assert.Contains(t, r.SOWKeywords, "sow", "absent sections keep defaults")
}

func TestLoad_InvalidPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("legal_patterns: ['(unclosed']\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid legal pattern")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "blueoptima", Compact("Blue_Optima"))
	assert.Equal(t, "blueoptimamsav2", Compact("blue-optima MSA v2"))
}
