package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/report"
	"github.com/lacquerai/gambit/internal/stats"
	"github.com/lacquerai/gambit/internal/style"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [files...]",
	Short: "Report the class balance of arbitrary dataset files",
	Long: `Load one or more labeled files and print their shape and class distribution.

Files can be CSV, TSV or Excel, on disk or at an s3:// URI. Directories are
scanned for dataset files when --recursive is set.

Examples:
  gambit inspect dataset/train.csv                # Single file
  gambit inspect dataset/*.csv                    # Several files
  gambit inspect --recursive ./exports            # Every dataset file in a directory
  gambit inspect --output json s3://bucket/a.csv  # JSON output for CI/CD`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspectFiles(cmd, args)
	},
}

var (
	inspectRecursive   bool
	inspectLabelColumn string
	inspectTextColumn  string
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVarP(&inspectRecursive, "recursive", "r", false, "recursively inspect dataset files in directories")
	inspectCmd.Flags().StringVar(&inspectLabelColumn, "label-column", dataset.DefaultLabelColumn, "name of the label column")
	inspectCmd.Flags().StringVar(&inspectTextColumn, "text-column", "", "name of the comment column (default: auto-detect)")
}

// now is swapped in tests for a deterministic clock.
var now = time.Now

// InspectResult is the outcome of inspecting one file.
type InspectResult struct {
	File       string         `json:"file" yaml:"file"`
	DurationMS int64          `json:"duration_ms" yaml:"duration_ms"`
	Summary    *stats.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// InspectSummary aggregates the results of an inspect run.
type InspectSummary struct {
	Total      int             `json:"total" yaml:"total"`
	Loaded     int             `json:"loaded" yaml:"loaded"`
	Failed     int             `json:"failed" yaml:"failed"`
	DurationMS int64           `json:"total_duration_ms" yaml:"total_duration_ms"`
	Results    []InspectResult `json:"results" yaml:"results"`
}

func inspectFiles(cmd *cobra.Command, args []string) error {
	start := now()
	out := cmd.OutOrStdout()

	format, err := report.ParseFormat(viper.GetString("format"))
	if err != nil {
		return err
	}

	files, err := collectFiles(args, inspectRecursive)
	if err != nil {
		return fmt.Errorf("failed to collect files: %w", err)
	}
	if len(files) == 0 {
		style.Warning(out, "No dataset files found to inspect")
		return nil
	}

	loader := dataset.NewLoader(dataset.NewResolver(dataset.S3Config{
		Region:   viper.GetString("s3.region"),
		Endpoint: viper.GetString("s3.endpoint"),
	}), dataset.Options{
		LabelColumn: inspectLabelColumn,
		TextColumn:  inspectTextColumn,
	})

	summary := InspectSummary{Results: make([]InspectResult, 0, len(files))}
	for _, file := range files {
		fileStart := now()
		result := InspectResult{File: file}

		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		frame, err := loader.Load(cmd.Context(), name, file)
		if err != nil {
			result.Error = err.Error()
			summary.Failed++
			log.Warn().Err(err).Str("file", file).Msg("Failed to inspect file")
		} else {
			s := stats.Summarize(name, frame)
			result.Summary = &s
			summary.Loaded++
		}
		result.DurationMS = now().Sub(fileStart).Milliseconds()
		summary.Results = append(summary.Results, result)
	}
	summary.Total = len(summary.Results)
	summary.DurationMS = now().Sub(start).Milliseconds()

	switch format {
	case report.FormatJSON:
		err = style.WriteJSON(out, summary)
	case report.FormatYAML:
		err = style.WriteYAML(out, summary)
	default:
		printInspectSummary(out, summary)
	}
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files could not be inspected", summary.Failed, summary.Total)
	}
	return nil
}

func printInspectSummary(w io.Writer, summary InspectSummary) {
	rows := make([][]string, 0, len(summary.Results))
	for _, result := range summary.Results {
		if result.Summary == nil {
			continue
		}
		s := result.Summary
		neg, pos := s.Class(dataset.NonGambling), s.Class(dataset.Gambling)
		rows = append(rows, []string{
			result.File,
			strconv.Itoa(s.Rows),
			strconv.Itoa(s.Columns),
			fmt.Sprintf("%d (%.2f%%)", neg.Count, neg.Percent),
			fmt.Sprintf("%d (%.2f%%)", pos.Count, pos.Percent),
			fmt.Sprintf("%.3f", s.ImbalanceRatio),
		})
	}
	printTable(w, []string{"FILE", "ROWS", "COLUMNS", "NON-GAMBLING (0)", "GAMBLING (1)", "IMBALANCE"}, rows)

	for _, result := range summary.Results {
		if result.Error != "" {
			style.Error(w, result.Error)
		}
	}

	if !viper.GetBool("quiet") {
		fmt.Fprintf(w, "\n%s %d loaded, %d failed %s\n",
			style.InfoIcon(), summary.Loaded, summary.Failed,
			style.DurationStyle.Render(fmt.Sprintf("(%s)", time.Duration(summary.DurationMS)*time.Millisecond)))
	}
}

// collectFiles expands directories into the dataset files they contain.
// Remote URIs are passed through untouched.
func collectFiles(args []string, recursive bool) ([]string, error) {
	var files []string
	for _, arg := range args {
		if strings.Contains(arg, "://") && !strings.HasPrefix(arg, "file://") {
			files = append(files, arg)
			continue
		}

		info, err := os.Stat(strings.TrimPrefix(arg, "file://"))
		if err != nil {
			// Reported per file by the loader.
			files = append(files, arg)
			continue
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		if !recursive {
			return nil, fmt.Errorf("%s is a directory (use --recursive)", arg)
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isDatasetFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isDatasetFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".tab", ".xlsx", ".xlsm":
		return true
	}
	return false
}
