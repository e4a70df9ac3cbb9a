package redline

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/redline/internal/report"
)

var reportFormats []string

var reportCmd = &cobra.Command{
	Use:   "report <result-id>",
	Short: "Regenerate reports for a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringSliceVarP(&reportFormats, "formats", "f", nil, "Formats to render (default from config)")
}

func runReport(cmd *cobra.Command, args []string) error {
	formats := application.Formats
	if len(reportFormats) > 0 {
		var err error
		if formats, err = report.ParseFormats(reportFormats); err != nil {
			return err
		}
	}

	result, err := application.Store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	outcomes := application.Reports.Generate(cmd.Context(), result, formats)
	printOutcomes(os.Stderr, outcomes)
	return outcomes.Err()
}
