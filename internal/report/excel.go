package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/kamilpajak/redline/pkg/models"
	"github.com/xuri/excelize/v2"
)

const (
	changesSheet = "Changes"
	summarySheet = "Summary"
)

var changeColumns = []struct {
	title string
	width float64
}{
	{"#", 6},
	{"Template (before)", 50},
	{"Document (after)", 50},
	{"Relevance (explanation)", 60},
	{"Classification", 18},
	{"Required reviews", 28},
	{"Section", 30},
}

// ExcelFormatter renders an .xlsx with one row per change, coloured by tier,
// and a summary sheet of tallies.
type ExcelFormatter struct{}

func (ExcelFormatter) Format() Format { return FormatExcel }

func (ExcelFormatter) Render(w io.Writer, r *models.AnalysisResult) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", changesSheet); err != nil {
		return err
	}
	if err := writeChangesSheet(f, r); err != nil {
		return fmt.Errorf("changes sheet: %w", err)
	}
	if err := writeSummarySheet(f, r); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeChangesSheet(f *excelize.File, r *models.AnalysisResult) error {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"404040"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return err
	}
	rowStyles := make(map[models.Classification]int, len(tierFill))
	for cl, fill := range tierFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{fill.hex()}, Pattern: 1},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		})
		if err != nil {
			return err
		}
		rowStyles[cl] = id
	}

	for i, col := range changeColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(changesSheet, cell, col.title); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(changesSheet, name, name, col.width); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(changeColumns))
	if err := f.SetCellStyle(changesSheet, "A1", last+"1", header); err != nil {
		return err
	}

	for i, ch := range r.Changes {
		row := i + 2
		values := []any{
			ch.ID,
			ch.BeforeText,
			ch.AfterText,
			ch.Explanation,
			string(ch.Classification),
			strings.Join(ch.RequiredReviews, ", "),
			ch.SectionContext,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(changesSheet, cell, v); err != nil {
				return err
			}
		}
		if style, ok := rowStyles[ch.Classification]; ok {
			if err := f.SetCellStyle(changesSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), style); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(changesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummarySheet(f *excelize.File, r *models.AnalysisResult) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := [][2]any{
		{"Contract", documentName(r.ContractRef)},
		{"Template", templateName(r)},
		{"Overall risk", string(r.OverallRiskLevel)},
		{"Similarity (%)", r.SimilarityScore},
		{"Critical", r.Counts.Critical},
		{"Significant", r.Counts.Significant},
		{"Inconsequential", r.Counts.Inconsequential},
		{"Total changes", r.Counts.Total},
		{"Generated", r.CreatedAt.UTC().Format("2006-01-02 15:04 MST")},
	}
	for i, kv := range rows {
		row := i + 1
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", 24)
}
