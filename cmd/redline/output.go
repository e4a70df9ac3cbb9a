package redline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/kamilpajak/redline/internal/analysis"
	"github.com/kamilpajak/redline/internal/catalog"
	"github.com/kamilpajak/redline/internal/report"
	"github.com/kamilpajak/redline/pkg/models"
)

func riskColor(level models.RiskLevel) *color.Color {
	switch level {
	case models.RiskHigh:
		return color.New(color.FgRed, color.Bold)
	case models.RiskMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

func tierColor(c models.Classification) *color.Color {
	switch c {
	case models.ClassificationCritical:
		return color.New(color.FgRed)
	case models.ClassificationSignificant:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}

func printResult(w io.Writer, r *models.AnalysisResult) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	_, _ = bold.Fprintf(w, "Contract Review: %s\n", filepath.Base(r.ContractRef))
	fmt.Fprintf(w, "Template: %s", r.TemplateRef)
	if r.Metadata.MatchRule != "" {
		_, _ = dim.Fprintf(w, " (%s match)", r.Metadata.MatchRule)
	}
	fmt.Fprintln(w)
	_, _ = dim.Fprintln(w, strings.Repeat("━", 50))

	fmt.Fprint(w, "Overall risk: ")
	_, _ = riskColor(r.OverallRiskLevel).Fprintln(w, r.OverallRiskLevel)
	fmt.Fprintf(w, "Similarity:   %.1f%%\n", r.SimilarityScore)
	fmt.Fprintf(w, "Changes:      %d critical, %d significant, %d inconsequential\n",
		r.Counts.Critical, r.Counts.Significant, r.Counts.Inconsequential)
	if r.Metadata.LLMModel != "" {
		_, _ = dim.Fprintf(w, "Classified with %s/%s\n", r.Metadata.LLMProvider, r.Metadata.LLMModel)
	}

	for _, tier := range models.Classifications {
		changes := r.ChangesByClassification(tier)
		if len(changes) == 0 {
			continue
		}
		fmt.Fprintln(w)
		_, _ = tierColor(tier).Add(color.Bold).Fprintf(w, "%s (%d)\n", strings.ToUpper(string(tier)), len(changes))
		for _, c := range changes {
			printChange(w, c)
		}
	}
	fmt.Fprintln(w)
	_, _ = dim.Fprintf(w, "Result ID: %s\n", r.ID)
}

func printChange(w io.Writer, c models.Change) {
	dim := color.New(color.FgHiBlack)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	header := fmt.Sprintf("  #%d %s", c.ID, c.Kind)
	if c.SectionContext != "" {
		header += " in " + c.SectionContext
	}
	_, _ = dim.Fprintln(w, header)
	if c.BeforeText != "" {
		_, _ = red.Fprintf(w, "    - %s\n", c.BeforeText)
	}
	if c.AfterText != "" {
		_, _ = green.Fprintf(w, "    + %s\n", c.AfterText)
	}
	if c.Explanation != "" {
		fmt.Fprintf(w, "    %s\n", c.Explanation)
	}
	if len(c.RequiredReviews) > 0 {
		_, _ = color.New(color.FgYellow).Fprintf(w, "    Requires: %s\n", strings.Join(c.RequiredReviews, ", "))
	}
}

func printBatchLine(w io.Writer, it analysis.BatchItem) {
	r := it.Result
	fmt.Fprintf(w, "%-40s ", filepath.Base(it.Path))
	_, _ = riskColor(r.OverallRiskLevel).Fprintf(w, "%-6s", r.OverallRiskLevel)
	fmt.Fprintf(w, " %5.1f%%  %d changes  %s\n", r.SimilarityScore, r.Counts.Total, r.ID)
}

func printBatchFailure(w io.Writer, it analysis.BatchItem) {
	fmt.Fprintf(w, "%-40s ", filepath.Base(it.Path))
	_, _ = color.New(color.FgRed).Fprintf(w, "FAILED %s\n", describe(it.Err))
}

func printOutcomes(w io.Writer, outcomes report.Outcomes) {
	for _, f := range report.Formats {
		o, ok := outcomes[f]
		if !ok {
			continue
		}
		if o.Err != nil {
			_, _ = color.New(color.FgRed).Fprintf(w, "  %-5s failed: %v\n", f, o.Err)
			continue
		}
		fmt.Fprintf(w, "  %-5s %s\n", f, o.Location)
	}
}

// describe shortens well-known pipeline errors for terminal output.
func describe(err error) string {
	var unmatched *catalog.UnmatchedContractError
	if errors.As(err, &unmatched) {
		return "not a vendor contract"
	}
	return err.Error()
}

func printError(w io.Writer, err error) {
	_, _ = color.New(color.FgRed).Fprint(w, "Error: ")
	fmt.Fprintln(w, err)
}
