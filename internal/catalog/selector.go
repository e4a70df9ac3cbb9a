package catalog

import (
	"fmt"
	"strings"

	"github.com/kamilpajak/redline/internal/rules"
	"github.com/kamilpajak/redline/pkg/models"
)

// Match rules, in priority order.
const (
	RuleVendor      = "vendor"
	RuleSOW         = "sow"
	RuleChangeOrder = "change_order"
	RuleManual      = "manual"
)

// Match is a successful template selection.
type Match struct {
	Entry   models.TemplateEntry
	Rule    string
	Keyword string
}

// UnmatchedContractError is returned when no template fits a contract.
type UnmatchedContractError struct {
	Filename string
}

func (e *UnmatchedContractError) Error() string {
	return fmt.Sprintf("%s is not a vendor contract: no matching template found", e.Filename)
}

// Selector maps a contract to its best template.
type Selector struct {
	catalog *Catalog
	rules   *rules.Rules
}

// NewSelector creates a selector over a catalog.
func NewSelector(c *Catalog, r *rules.Rules) *Selector {
	return &Selector{catalog: c, rules: r}
}

// Select applies vendor, SOW and change-order keywords in strict priority
// order. The second return value is false when nothing matches; callers must
// reject the contract rather than compare it.
func (s *Selector) Select(contractText, contractFilename string) (Match, bool) {
	text := strings.ToLower(contractText)
	filename := strings.ToLower(contractFilename)

	// Vendor keywords search the body; an unreadable body falls back to the filename.
	vendorHaystack := text
	if strings.TrimSpace(text) == "" {
		vendorHaystack = filename
	}
	for _, v := range s.rules.Vendors {
		kw, ok := containsAny(vendorHaystack, v.Keywords)
		if !ok {
			continue
		}
		if e, found := s.vendorEntry(v.Token); found {
			return Match{Entry: e, Rule: RuleVendor, Keyword: kw}, true
		}
	}

	if kw, ok := containsAnyOf([]string{text, filename}, s.rules.SOWKeywords); ok {
		if e, found := s.sowEntry(); found {
			return Match{Entry: e, Rule: RuleSOW, Keyword: kw}, true
		}
	}

	if kw, ok := containsAnyOf([]string{text, padded(filename)}, s.rules.ChangeOrderKeywords); ok {
		if e, found := s.firstWithCategory(models.CategoryChangeOrder); found {
			return Match{Entry: e, Rule: RuleChangeOrder, Keyword: kw}, true
		}
	}

	return Match{}, false
}

func (s *Selector) vendorEntry(token string) (models.TemplateEntry, bool) {
	want := rules.Compact(token)
	// Prefer the vendor's master template over its SOW when both exist.
	var fallback *models.TemplateEntry
	for _, e := range s.catalog.entries {
		if !strings.Contains(rules.Compact(e.Name), want) {
			continue
		}
		if !isSOWName(e.Name, s.rules) && !isChangeOrderName(e.Name, s.rules) {
			return e, true
		}
		if fallback == nil {
			e := e
			fallback = &e
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return models.TemplateEntry{}, false
}

func (s *Selector) sowEntry() (models.TemplateEntry, bool) {
	if e, ok := s.firstWithCategory(models.CategorySOW); ok {
		return e, true
	}
	for _, e := range s.catalog.entries {
		if isSOWName(e.Name, s.rules) {
			return e, true
		}
	}
	return models.TemplateEntry{}, false
}

func (s *Selector) firstWithCategory(category string) (models.TemplateEntry, bool) {
	for _, e := range s.catalog.entries {
		if e.Category == category {
			return e, true
		}
	}
	return models.TemplateEntry{}, false
}

func containsAny(haystack string, keywords []string) (string, bool) {
	if haystack == "" {
		return "", false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, kw) {
			return kw, true
		}
	}
	return "", false
}

func containsAnyOf(haystacks []string, keywords []string) (string, bool) {
	for _, h := range haystacks {
		if kw, ok := containsAny(h, keywords); ok {
			return kw, true
		}
	}
	return "", false
}

// padded surrounds a filename with spaces and turns separators into spaces so
// word-bounded keywords such as " co " can match "acme_co_2024.docx".
func padded(filename string) string {
	r := strings.NewReplacer("_", " ", "-", " ", ".", " ")
	return " " + r.Replace(filename) + " "
}
