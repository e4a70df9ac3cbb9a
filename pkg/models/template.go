package models

// Template categories. Vendor templates use the vendor token as category.
const (
	CategorySOW         = "sow"
	CategoryChangeOrder = "change_order"
	CategoryOther       = "other"
)

// TemplateEntry is a known template file in the catalog.
type TemplateEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Category string `json:"category"`
}
