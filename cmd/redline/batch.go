package redline

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/redline/internal/analysis"
	"github.com/kamilpajak/redline/internal/report"
)

var (
	batchWorkers int
	batchReports []string
)

var batchCmd = &cobra.Command{
	Use:   "batch <contract>...",
	Short: "Analyze several contracts in parallel",
	Long: `Analyze independent contracts concurrently. A contract that fails does not
stop the others; the command exits non-zero if any contract failed.

Examples:
  redline batch ./inbox/*.docx --workers 8
  redline batch a.docx b.pdf --report excel`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent analyses (default from config)")
	batchCmd.Flags().StringSliceVarP(&batchReports, "report", "r", nil, "Generate reports (word, excel, pdf)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	var formats []report.Format
	if len(batchReports) > 0 {
		var err error
		if formats, err = report.ParseFormats(batchReports); err != nil {
			return err
		}
	}
	workers := batchWorkers
	if workers <= 0 {
		workers = application.Config.Batch.Workers
	}

	emitter := newEmitter(os.Stderr)
	items, _ := application.Pipeline.RunBatch(cmd.Context(), args, workers, analysis.RunOptions{Emitter: emitter})
	emitter.Close()

	out := cmd.OutOrStdout()
	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
			printBatchFailure(out, it)
			continue
		}
		printBatchLine(out, it)
		if len(formats) > 0 {
			outcomes := application.Reports.Generate(cmd.Context(), it.Result, formats)
			printOutcomes(os.Stderr, outcomes)
			if outcomes.Err() != nil {
				failed++
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d contracts failed", failed, len(items))
	}
	return nil
}
