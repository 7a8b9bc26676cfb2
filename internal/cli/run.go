package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lacquerai/gambit/internal/engine"
	"github.com/lacquerai/gambit/internal/execcontext"
	"github.com/lacquerai/gambit/internal/report"
	"github.com/lacquerai/gambit/internal/style"
	pkgEvents "github.com/lacquerai/gambit/pkg/events"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the dataset splits and report their class balance",
	Long: `Load the train, test and holdout splits and report their shapes and the
class distribution of the configured splits.

This command:
- Creates the output directory
- Loads each split from disk or S3, in order
- Counts gambling and non-gambling comments and the imbalance ratio
- Optionally writes the report to data_summary.json

Examples:
  gambit run                                 # Use ./dataset/{train,test,holdout}.csv
  gambit run --data-dir s3://bucket/comments # Load splits from S3
  gambit run --distribution train,test,holdout
  gambit run --write-summary --output json   # JSON output for automation`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindDataFlags(cmd); err != nil {
			return err
		}
		return runPipeline(cmd)
	},
}

var runTimeout time.Duration

func init() {
	rootCmd.AddCommand(runCmd)
	addDataFlags(runCmd)
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "overall run timeout (0 disables)")
}

func runPipeline(cmd *cobra.Command) error {
	cfg, err := loadEngineConfig(viper.GetViper())
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(viper.GetString("format"))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if runTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, runTimeout)
		defer timeoutCancel()
	}

	out := cmd.OutOrStdout()
	text := format == report.FormatText

	// Structured formats stay machine readable, so diagnostics are dropped.
	diag := cmd.ErrOrStderr()
	if !text {
		diag = io.Discard
	}
	runCtx := execcontext.New(ctx, out, diag)

	quiet := viper.GetBool("quiet")
	live := text && !quiet && showsProgress(out)

	var listener pkgEvents.Listener
	if live {
		report.Banner(out)
		listener = engine.NewProgressTracker(out)
	}

	r, err := engine.NewRunner(listener).Run(runCtx, cfg)
	if err != nil {
		return err
	}

	log.Debug().
		Str("run_id", r.RunID).
		Str("format", string(format)).
		Msg("Rendering report")

	switch {
	case !text:
		return report.Write(out, format, r)
	case quiet:
		report.Shapes(out, r)
		report.Distributions(out, r)
	case live:
		report.Distributions(out, r)
		printSummaryFile(out, r)
		report.Closing(out)
	default:
		report.Banner(out)
		report.Shapes(out, r)
		report.Distributions(out, r)
		printSummaryFile(out, r)
		report.Closing(out)
	}
	return nil
}

func printSummaryFile(w io.Writer, r *engine.Report) {
	if r.SummaryFile == "" {
		return
	}
	fmt.Fprintf(w, "\n%s Summary written to %s\n", style.SuccessIcon(), style.FormatFilePath(r.SummaryFile))
}

// showsProgress reports whether spinners can render on w. The test spinner
// writes plain lines, so GAMBIT_TEST forces it on.
func showsProgress(w io.Writer) bool {
	if os.Getenv("GAMBIT_TEST") == "true" {
		return true
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
