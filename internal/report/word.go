package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/kamilpajak/redline/pkg/models"
)

const (
	deletedInk   = "9C0006"
	deletedShade = "FFC7CE"
	insertedInk  = "006100"
	mutedInk     = "595959"
)

// WordFormatter renders a redlined .docx: executive summary, then one section
// per classification tier.
type WordFormatter struct{}

func (WordFormatter) Format() Format { return FormatWord }

func (WordFormatter) Render(w io.Writer, r *models.AnalysisResult) error {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().Justification("center").
		AddText("Contract Review: " + documentName(r.ContractRef)).Bold().Size("36")
	doc.AddParagraph().Justification("center").
		AddText("Template: " + templateName(r)).Italic().Color(mutedInk)

	heading(doc, "Executive Summary")
	risk := doc.AddParagraph()
	risk.AddText("Overall risk: ").Bold()
	risk.AddText(string(r.OverallRiskLevel)).Bold().Color(riskInk[r.OverallRiskLevel].hex())
	doc.AddParagraph().AddText("Similarity to template: " + percent(r.SimilarityScore))
	doc.AddParagraph().AddText(countsLine(r.Counts))
	doc.AddParagraph().AddText(narrative(r))
	if r.Metadata.LLMProvider != "" {
		doc.AddParagraph().AddText(fmt.Sprintf("Classified with %s (%s).", r.Metadata.LLMProvider, r.Metadata.LLMModel)).
			Italic().Color(mutedInk)
	}

	for _, t := range tiers(r) {
		heading(doc, fmt.Sprintf("%s changes (%d)", t.Classification, len(t.Changes))).
			Color(tierInk[t.Classification].hex())
		if len(t.Changes) == 0 {
			doc.AddParagraph().AddText("None.").Italic().Color(mutedInk)
			continue
		}
		for _, ch := range t.Changes {
			writeChange(doc, ch)
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func heading(doc *docx.Docx, text string) *docx.Run {
	return doc.AddParagraph().AddText(text).Bold().Size("28")
}

func writeChange(doc *docx.Docx, ch models.Change) {
	doc.AddParagraph().AddText(changeHeading(ch)).Bold()

	if ch.BeforeText != "" {
		p := doc.AddParagraph()
		p.AddText("Template: ").Bold()
		p.AddText(ch.BeforeText).Color(deletedInk).Shade("clear", "auto", deletedShade)
	}
	if ch.AfterText != "" {
		p := doc.AddParagraph()
		p.AddText("Contract: ").Bold()
		p.AddText(ch.AfterText).Color(insertedInk).Underline("single")
	}

	doc.AddParagraph().AddText(ch.Explanation).Italic()
	if len(ch.RequiredReviews) > 0 {
		doc.AddParagraph().AddText("Required reviews: " + strings.Join(ch.RequiredReviews, ", ")).Color(mutedInk)
	}
}
