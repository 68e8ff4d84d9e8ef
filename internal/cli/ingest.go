package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/extract"
	"github.com/roach88/mealledger/internal/ingest"
	"github.com/roach88/mealledger/internal/layout"
	"github.com/roach88/mealledger/internal/metrics"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Workers   int
	BatchSize int
	Tolerance float64
	Trace     bool
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <document>...",
		Short: "Ingest delivery documents into the ledger",
		Long: `Ingest delivery documents into the ledger.

Each document is a text-extractor dump: YAML or JSON pages of positioned
fragments, or a .txt file of lines already in reading order. Documents are
extracted in parallel and stored in groups of --batch-size per transaction.
A document that cannot be parsed is reported as failed without affecting
the others; the command then exits with status 1.

Example:
  mealledger ingest scans/*.yaml
  mealledger ingest --trace week12.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", ingest.DefaultWorkers, "parallel extraction workers")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", ingest.DefaultBatchSize, "documents per transaction")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", layout.DefaultTolerance, "vertical distance under which fragments share a line")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print every extractor transition to stderr")

	return cmd
}

func runIngest(opts *IngestOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sess, err := openSession(cmd.Context(), opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer sess.Close()

	pipelineOpts := []ingest.Option{
		ingest.WithWorkers(opts.Workers),
		ingest.WithBatchSize(opts.BatchSize),
		ingest.WithTolerance(opts.Tolerance),
		ingest.WithLogger(sess.log.Named("ingest")),
	}

	var recorder *metrics.Recorder
	if opts.MetricsFile != "" {
		recorder = metrics.New()
		pipelineOpts = append(pipelineOpts, ingest.WithMetrics(recorder))
	}

	if opts.Trace {
		var mu sync.Mutex
		w := formatter.GetErrWriter()
		pipelineOpts = append(pipelineOpts, ingest.WithTrace(func(doc string, ev extract.Event) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "%s: %s -> %s %-6s %q", doc, ev.From, ev.To, ev.Transition, ev.Line)
			if ev.Reason != "" {
				fmt.Fprintf(w, " (%s)", ev.Reason)
			}
			fmt.Fprintln(w)
		}))
	}

	report, err := ingest.New(sess.store, pipelineOpts...).IngestFiles(cmd.Context(), paths)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "ingest interrupted", err)
	}
	formatter.VerboseLog("Run %s", report.RunID)

	if recorder != nil {
		if err := recorder.WriteFile(opts.MetricsFile); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write metrics", err)
		}
		formatter.VerboseLog("Wrote metrics to %s", opts.MetricsFile)
	}

	if formatter.JSON() {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		printIngestReport(formatter, report)
	}

	if report.Failed > 0 {
		exitErr := NewExitError(ExitFailure, fmt.Sprintf("%s: %d document(s) failed", ErrCodeIngestFailed, report.Failed))
		exitErr.reported = true
		return exitErr
	}
	return nil
}

func printIngestReport(f *OutputFormatter, report *ingest.Report) {
	tw := f.Table()
	for _, d := range report.Documents {
		detail := fmt.Sprintf("%d inserted, %d skipped", d.Inserted, d.Skipped)
		if d.Status == ingest.StatusFailed {
			detail = d.Reason
		} else if d.Week != "" {
			detail = fmt.Sprintf("week %s  %s", d.Week, detail)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, statusWord(string(d.Status)), detail)
	}
	tw.Flush()

	mark := okMark()
	if report.Failed > 0 {
		mark = failMark()
	}
	fmt.Fprintf(f.Writer, "\n%s %d processed, %d skipped, %d failed (%d rows inserted, %d rows skipped)\n",
		mark, report.Processed, report.Skipped, report.Failed, report.RowsInserted, report.RowsSkipped)
}
