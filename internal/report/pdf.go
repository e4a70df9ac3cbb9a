package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/kamilpajak/redline/pkg/models"
)

const (
	pdfMargin     = 15.0
	pdfLineHeight = 5.0
	pdfUTF8Family = "body"
)

// PDF table columns; widths add up to the A4 text width.
var pdfColumns = []struct {
	title string
	width float64
}{
	{"#", 10},
	{"Template (before)", 55},
	{"Document (after)", 55},
	{"Relevance (explanation)", 60},
}

// PDFFormatter renders a summary report. With FontPath set, text is drawn in
// that TrueType font so non-Latin-1 contract text survives; otherwise the
// core Helvetica font is used.
type PDFFormatter struct {
	FontPath string
}

func (PDFFormatter) Format() Format { return FormatPDF }

func (p PDFFormatter) Render(w io.Writer, r *models.AnalysisResult) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle("Contract Review: "+documentName(r.ContractRef), true)

	family, tr, err := p.font(pdf)
	if err != nil {
		return err
	}
	doc := &pdfDoc{pdf: pdf, family: family, tr: tr, core: p.FontPath == ""}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin + 5)
		doc.font("I", 8)
		pdf.CellFormat(0, 5, "Page "+strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	doc.title(r)
	doc.summary(r)
	for _, t := range tiers(r) {
		doc.tierTable(t)
	}

	if pdf.Err() {
		return fmt.Errorf("render pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (p PDFFormatter) font(pdf *fpdf.Fpdf) (string, func(string) string, error) {
	if p.FontPath == "" {
		return "Helvetica", pdf.UnicodeTranslatorFromDescriptor(""), nil
	}
	if _, err := os.Stat(p.FontPath); err != nil {
		return "", nil, fmt.Errorf("pdf font: %w", err)
	}
	// One file serves every style; fpdf needs each registered.
	for _, style := range []string{"", "B", "I"} {
		pdf.AddUTF8Font(pdfUTF8Family, style, p.FontPath)
	}
	if pdf.Err() {
		return "", nil, fmt.Errorf("pdf font %s: %w", p.FontPath, pdf.Error())
	}
	return pdfUTF8Family, func(s string) string { return s }, nil
}

type pdfDoc struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	core   bool
}

func (d *pdfDoc) font(style string, size float64) {
	d.pdf.SetFont(d.family, style, size)
}

func (d *pdfDoc) title(r *models.AnalysisResult) {
	d.font("B", 18)
	d.pdf.CellFormat(0, 10, d.tr("Contract Review: "+documentName(r.ContractRef)), "", 1, "L", false, 0, "")
	d.font("I", 10)
	d.pdf.SetTextColor(0x59, 0x59, 0x59)
	d.pdf.CellFormat(0, 6, d.tr("Template: "+templateName(r)+"   Generated: "+r.CreatedAt.UTC().Format("2006-01-02")), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(4)
}

func (d *pdfDoc) summary(r *models.AnalysisResult) {
	d.font("B", 13)
	d.pdf.CellFormat(0, 8, "Executive Summary", "", 1, "L", false, 0, "")

	ink := riskInk[r.OverallRiskLevel]
	d.font("B", 11)
	d.pdf.SetTextColor(ink.R, ink.G, ink.B)
	d.pdf.CellFormat(0, 7, "Overall risk: "+string(r.OverallRiskLevel), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)

	d.font("", 10)
	d.pdf.MultiCell(0, pdfLineHeight, d.tr(narrative(r)), "", "L", false)
	d.pdf.Ln(2)
	d.pdf.CellFormat(0, pdfLineHeight, "Similarity to template: "+percent(r.SimilarityScore), "", 1, "L", false, 0, "")
	d.pdf.CellFormat(0, pdfLineHeight, countsLine(r.Counts), "", 1, "L", false, 0, "")
	d.pdf.Ln(4)
}

func (d *pdfDoc) tierTable(t tier) {
	ink := tierInk[t.Classification]
	d.font("B", 12)
	d.pdf.SetTextColor(ink.R, ink.G, ink.B)
	d.pdf.CellFormat(0, 8, fmt.Sprintf("%s changes (%d)", t.Classification, len(t.Changes)), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)

	if len(t.Changes) == 0 {
		d.font("I", 9)
		d.pdf.CellFormat(0, 6, "None.", "", 1, "L", false, 0, "")
		d.pdf.Ln(2)
		return
	}

	d.tableHeader()
	fill := tierFill[t.Classification]
	d.font("", 9)
	for _, ch := range t.Changes {
		cells := []string{
			strconv.Itoa(ch.ID),
			d.tr(orDash(ch.BeforeText)),
			d.tr(orDash(ch.AfterText)),
			d.tr(ch.Explanation),
		}
		d.row(cells, fill)
	}
	d.pdf.Ln(4)
}

func (d *pdfDoc) tableHeader() {
	d.font("B", 9)
	d.pdf.SetFillColor(0x40, 0x40, 0x40)
	d.pdf.SetTextColor(0xFF, 0xFF, 0xFF)
	for _, col := range pdfColumns {
		d.pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetTextColor(0, 0, 0)
}

// row draws one table row whose height fits the tallest cell, starting a new
// page (and repeating the header) when it would not fit.
func (d *pdfDoc) row(cells []string, fill rgb) {
	lines := 1
	for i, text := range cells {
		n := len(d.pdf.SplitText(d.measurable(text), pdfColumns[i].width-2))
		lines = max(lines, n)
	}
	height := float64(lines) * pdfLineHeight

	_, pageHeight := d.pdf.GetPageSize()
	if d.pdf.GetY()+height > pageHeight-pdfMargin {
		d.pdf.AddPage()
		d.tableHeader()
		d.font("", 9)
	}

	d.pdf.SetFillColor(fill.R, fill.G, fill.B)
	x, y := d.pdf.GetXY()
	for i, text := range cells {
		width := pdfColumns[i].width
		d.pdf.Rect(x, y, width, height, "FD")
		d.pdf.SetXY(x+1, y)
		d.pdf.MultiCell(width-2, pdfLineHeight, text, "", "L", false)
		x += width
	}
	d.pdf.SetXY(pdfMargin, y+height)
}

// measurable returns text in the form SplitText expects. Core fonts draw
// translated cp1252 bytes, but SplitText decodes runes and looks each one up
// in a 256-entry width table, so every byte is widened to its own rune.
func (d *pdfDoc) measurable(text string) string {
	if !d.core {
		return text
	}
	runes := make([]rune, len(text))
	for i := 0; i < len(text); i++ {
		runes[i] = rune(text[i])
	}
	return string(runes)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
