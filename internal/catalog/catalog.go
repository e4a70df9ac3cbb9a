// Package catalog loads the template directory and picks the template a
// contract should be compared against.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kamilpajak/redline/internal/rules"
	"github.com/kamilpajak/redline/pkg/models"
)

// Catalog is the read-only set of known templates. It is safe for concurrent reads.
type Catalog struct {
	entries []models.TemplateEntry
}

// Load lists dir and builds a catalog from every file with a supported extension.
func Load(dir string, r *rules.Rules, extensions []string) (*Catalog, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		allowed[strings.ToLower(e)] = true
	}

	var entries []models.TemplateEntry
	for _, de := range des {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") || strings.HasPrefix(de.Name(), "~$") {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(de.Name()))] {
			continue
		}
		entries = append(entries, models.TemplateEntry{
			Name:     de.Name(),
			Path:     filepath.Join(dir, de.Name()),
			Category: Categorize(de.Name(), r),
		})
	}
	return New(entries), nil
}

// New builds a catalog from explicit entries, sorted by name.
func New(entries []models.TemplateEntry) *Catalog {
	sorted := make([]models.TemplateEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Catalog{entries: sorted}
}

// Entries returns a copy of the catalog entries.
func (c *Catalog) Entries() []models.TemplateEntry {
	out := make([]models.TemplateEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get looks an entry up by exact name, then by name without extension.
func (c *Catalog) Get(name string) (models.TemplateEntry, bool) {
	for _, e := range c.entries {
		if e.Name == name {
			return e, true
		}
	}
	for _, e := range c.entries {
		if strings.TrimSuffix(e.Name, filepath.Ext(e.Name)) == name {
			return e, true
		}
	}
	return models.TemplateEntry{}, false
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Categorize derives a template category from its file name. Vendor tokens
// win over SOW and change-order markers.
func Categorize(name string, r *rules.Rules) string {
	compact := rules.Compact(name)
	for _, v := range r.Vendors {
		if strings.Contains(compact, rules.Compact(v.Token)) {
			return v.Token
		}
	}
	if isSOWName(name, r) {
		return models.CategorySOW
	}
	if isChangeOrderName(name, r) {
		return models.CategoryChangeOrder
	}
	return models.CategoryOther
}

func isSOWName(name string, r *rules.Rules) bool {
	compact := rules.Compact(name)
	for _, kw := range r.SOWKeywords {
		if k := rules.Compact(kw); k != "" && strings.Contains(compact, k) {
			return true
		}
	}
	return false
}

func isChangeOrderName(name string, r *rules.Rules) bool {
	compact := rules.Compact(name)
	for _, kw := range r.ChangeOrderKeywords {
		k := rules.Compact(kw)
		// "co" alone is too short to search inside a compacted name.
		if len(k) > 2 && strings.Contains(compact, k) {
			return true
		}
	}
	return false
}
