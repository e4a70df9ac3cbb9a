package redline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/redline/internal/analysis"
	"github.com/kamilpajak/redline/internal/report"
)

var (
	analyzeTemplate string
	analyzeFormat   string
	analyzeReports  []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <contract>",
	Short: "Compare one contract against its template",
	Long: `Compare a contract (.docx, .pdf or .txt) against the best matching template
and classify every change.

Examples:
  redline analyze ./uploads/acme-epam-msa.docx
  redline analyze ./contract.pdf --template "SOW Template" --report word,pdf
  redline analyze ./contract.docx --format json --no-llm`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTemplate, "template", "t", "", "Compare against this template instead of selecting one")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "Output format (text, json)")
	analyzeCmd.Flags().StringSliceVarP(&analyzeReports, "report", "r", nil, "Generate reports (word, excel, pdf)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFormat != "text" && analyzeFormat != "json" {
		return fmt.Errorf("unknown output format %q (want text or json)", analyzeFormat)
	}
	var formats []report.Format
	if len(analyzeReports) > 0 {
		var err error
		if formats, err = report.ParseFormats(analyzeReports); err != nil {
			return err
		}
	}

	emitter := newEmitter(os.Stderr)
	result, err := application.Pipeline.Run(cmd.Context(), args[0], analysis.RunOptions{
		Template: analyzeTemplate,
		Emitter:  emitter,
	})
	emitter.Close()
	if err != nil {
		return err
	}

	if analyzeFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), result)
	}

	if len(formats) == 0 {
		return nil
	}
	outcomes := application.Reports.Generate(cmd.Context(), result, formats)
	printOutcomes(os.Stderr, outcomes)
	return outcomes.Err()
}
