// Package rules holds the tunable keyword and pattern sets shared by template
// selection and change classification.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Vendor maps a catalog token to the keywords that identify the vendor in a contract.
type Vendor struct {
	Token    string   `yaml:"token"`
	Keywords []string `yaml:"keywords"`
}

// File is the on-disk YAML shape.
type File struct {
	Vendors             []Vendor `yaml:"vendors"`
	SOWKeywords         []string `yaml:"sow_keywords"`
	ChangeOrderKeywords []string `yaml:"change_order_keywords"`
	PlaceholderPatterns []string `yaml:"placeholder_patterns"`
	LegalPatterns       []string `yaml:"legal_patterns"`
	MoneyPatterns       []string `yaml:"money_patterns"`
	CorporateSuffixes   []string `yaml:"corporate_suffixes"`
}

// Rules is the compiled form of File.
type Rules struct {
	Vendors             []Vendor
	SOWKeywords         []string
	ChangeOrderKeywords []string
	CorporateSuffixes   []string

	Placeholders []*regexp.Regexp
	Legal        []*regexp.Regexp
	Money        []*regexp.Regexp
}

// Default returns the embedded rule set.
func Default() *Rules {
	r, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}
	return r
}

// Load returns the default rules overlaid with path. Sections present in the
// file replace the defaults wholesale; absent sections keep them.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var base File
	if err := yaml.Unmarshal(defaultRules, &base); err != nil {
		return nil, err
	}
	var override File
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return compile(merge(base, override))
}

// Parse compiles a YAML rule document.
func Parse(data []byte) (*Rules, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return compile(f)
}

func merge(base, o File) File {
	if len(o.Vendors) > 0 {
		base.Vendors = o.Vendors
	}
	if len(o.SOWKeywords) > 0 {
		base.SOWKeywords = o.SOWKeywords
	}
	if len(o.ChangeOrderKeywords) > 0 {
		base.ChangeOrderKeywords = o.ChangeOrderKeywords
	}
	if len(o.PlaceholderPatterns) > 0 {
		base.PlaceholderPatterns = o.PlaceholderPatterns
	}
	if len(o.LegalPatterns) > 0 {
		base.LegalPatterns = o.LegalPatterns
	}
	if len(o.MoneyPatterns) > 0 {
		base.MoneyPatterns = o.MoneyPatterns
	}
	if len(o.CorporateSuffixes) > 0 {
		base.CorporateSuffixes = o.CorporateSuffixes
	}
	return base
}

func compile(f File) (*Rules, error) {
	r := &Rules{
		SOWKeywords:         lowerAll(f.SOWKeywords),
		ChangeOrderKeywords: lowerAll(f.ChangeOrderKeywords),
		CorporateSuffixes:   f.CorporateSuffixes,
	}
	for _, v := range f.Vendors {
		if v.Token == "" {
			return nil, fmt.Errorf("vendor entry without token")
		}
		r.Vendors = append(r.Vendors, Vendor{Token: strings.ToLower(v.Token), Keywords: lowerAll(v.Keywords)})
	}

	var err error
	if r.Placeholders, err = compileAll("placeholder", f.PlaceholderPatterns); err != nil {
		return nil, err
	}
	if r.Legal, err = compileAll("legal", f.LegalPatterns); err != nil {
		return nil, err
	}
	if r.Money, err = compileAll("money", f.MoneyPatterns); err != nil {
		return nil, err
	}
	return r, nil
}

func compileAll(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", kind, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// MatchAny reports whether any pattern matches s.
func MatchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// FindAll returns every match of every pattern in s, in pattern order.
func FindAll(patterns []*regexp.Regexp, s string) []string {
	var out []string
	for _, re := range patterns {
		out = append(out, re.FindAllString(s, -1)...)
	}
	return out
}

// Compact lowercases s and strips everything but letters and digits, so
// "Blue_Optima" and "blue optima" compare equal.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
