package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kamilpajak/redline/pkg/models"
)

// tier is one classification section of a report.
type tier struct {
	Classification models.Classification
	Changes        []models.Change
}

// tiers groups changes by classification, most severe first, keeping
// document order inside each group. Empty tiers are kept so every report has
// the same sections.
func tiers(r *models.AnalysisResult) []tier {
	out := make([]tier, 0, len(models.Classifications))
	for _, cl := range models.Classifications {
		out = append(out, tier{Classification: cl, Changes: r.ChangesByClassification(cl)})
	}
	return out
}

type rgb struct{ R, G, B int }

func (c rgb) hex() string { return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B) }

// Fill and text colours per tier, the usual spreadsheet red/amber/green.
var (
	tierFill = map[models.Classification]rgb{
		models.ClassificationCritical:        {0xFF, 0xC7, 0xCE},
		models.ClassificationSignificant:     {0xFF, 0xEB, 0x9C},
		models.ClassificationInconsequential: {0xC6, 0xEF, 0xCE},
	}
	tierInk = map[models.Classification]rgb{
		models.ClassificationCritical:        {0x9C, 0x00, 0x06},
		models.ClassificationSignificant:     {0x9C, 0x57, 0x00},
		models.ClassificationInconsequential: {0x00, 0x61, 0x00},
	}
	riskInk = map[models.RiskLevel]rgb{
		models.RiskHigh:   tierInk[models.ClassificationCritical],
		models.RiskMedium: tierInk[models.ClassificationSignificant],
		models.RiskLow:    tierInk[models.ClassificationInconsequential],
	}
)

func documentName(ref string) string {
	if ref == "" {
		return "(unnamed)"
	}
	return filepath.Base(ref)
}

func templateName(r *models.AnalysisResult) string {
	if r.Metadata.TemplateName != "" {
		return r.Metadata.TemplateName
	}
	return documentName(r.TemplateRef)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func countsLine(c models.Counts) string {
	return fmt.Sprintf("%d changes: %d Critical, %d Significant, %d Inconsequential",
		c.Total, c.Critical, c.Significant, c.Inconsequential)
}

// narrative is the executive summary paragraph shared by the Word and PDF
// reports.
func narrative(r *models.AnalysisResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s was compared against the %s template and is %s similar to it. ",
		documentName(r.ContractRef), templateName(r), percent(r.SimilarityScore))

	c := r.Counts
	switch {
	case c.Total == 0:
		sb.WriteString("No differences were found. ")
	case c.Total == 1:
		sb.WriteString("One difference was found. ")
	default:
		fmt.Fprintf(&sb, "%d differences were found: %d Critical, %d Significant and %d Inconsequential. ",
			c.Total, c.Critical, c.Significant, c.Inconsequential)
	}

	switch r.OverallRiskLevel {
	case models.RiskHigh:
		sb.WriteString("Overall risk is HIGH because at least one change is Critical and must be reviewed before signature.")
	case models.RiskMedium:
		sb.WriteString("Overall risk is MEDIUM: the most severe changes are Significant and need a business owner's sign-off.")
	default:
		sb.WriteString("Overall risk is LOW: the contract follows the template apart from filled-in details.")
	}

	if reviews := requiredReviews(r); len(reviews) > 0 {
		fmt.Fprintf(&sb, " Required reviews: %s.", strings.Join(reviews, ", "))
	}
	return sb.String()
}

// requiredReviews is the union of review tags across all changes, in first
// appearance order.
func requiredReviews(r *models.AnalysisResult) []string {
	var out []string
	seen := map[string]bool{}
	for _, ch := range r.Changes {
		for _, tag := range ch.RequiredReviews {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out
}

func changeHeading(ch models.Change) string {
	h := fmt.Sprintf("#%d %s", ch.ID, ch.Kind)
	if ch.SectionContext != "" {
		h += " in " + ch.SectionContext
	}
	return h
}
