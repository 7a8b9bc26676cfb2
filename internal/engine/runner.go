package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/execcontext"
	"github.com/lacquerai/gambit/internal/stats"
	"github.com/lacquerai/gambit/internal/style"
	pkgEvents "github.com/lacquerai/gambit/pkg/events"
)

// FrameLoader reads a split into memory.
type FrameLoader interface {
	Load(ctx context.Context, name, uri string) (*dataset.Frame, error)
}

// LoaderFunc builds the FrameLoader used for a given config.
type LoaderFunc func(cfg *Config) FrameLoader

func defaultLoaderFunc(cfg *Config) FrameLoader {
	return dataset.NewLoader(dataset.NewResolver(cfg.S3), cfg.Dataset)
}

// Runner executes the load-and-report pipeline with progress tracking.
type Runner struct {
	progressListener pkgEvents.Listener
	newLoader        LoaderFunc
}

// RunnerOption is a function that can be used to configure a Runner.
type RunnerOption func(*Runner)

// WithLoaderFunc sets the function that creates the split loader.
// In general this is only used for testing.
func WithLoaderFunc(newLoader LoaderFunc) RunnerOption {
	return func(r *Runner) {
		r.newLoader = newLoader
	}
}

// NewRunner creates a runner with the specified progress listener.
func NewRunner(progressListener pkgEvents.Listener, options ...RunnerOption) *Runner {
	r := &Runner{
		progressListener: progressListener,
		newLoader:        defaultLoaderFunc,
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// SetProgressListener updates the progress listener for run events.
func (r *Runner) SetProgressListener(listener pkgEvents.Listener) {
	r.progressListener = listener
}

// Run loads every split, computes the configured class distributions and
// returns the report. A nil cfg runs with DefaultConfig.
func (r *Runner) Run(ctx execcontext.RunContext, cfg *Config) (*Report, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx.Context == nil {
		ctx.Context = context.Background()
	}

	listener := r.progressListener
	if listener == nil {
		listener = pkgEvents.ListenerFunc(func(pkgEvents.ExecutionEvent) {})
	}

	progressChan := make(chan pkgEvents.ExecutionEvent, 100)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		listener.StartListening(progressChan)
	}()

	report, err := r.execute(ctx.Context, ctx.Err(), cfg, progressChan)
	close(progressChan)
	wg.Wait()
	listener.StopListening()

	return report, err
}

func (r *Runner) execute(ctx context.Context, diag io.Writer, cfg *Config, progressChan chan<- pkgEvents.ExecutionEvent) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Seed:      cfg.Seed,
		OutputDir: cfg.OutputDir,
	}

	emit := func(event pkgEvents.ExecutionEvent) {
		event.RunID = report.RunID
		event.Timestamp = time.Now()
		progressChan <- event
	}
	fail := func(split string, err error) (*Report, error) {
		report.Duration = time.Since(report.StartedAt)
		emit(pkgEvents.ExecutionEvent{
			Type:     pkgEvents.EventPipelineFailed,
			Split:    split,
			Error:    err.Error(),
			Duration: report.Duration,
		})
		log.Error().
			Err(err).
			Str("run_id", report.RunID).
			Str("split", split).
			Dur("duration", report.Duration).
			Msg("Dataset run failed")
		return nil, err
	}

	emit(pkgEvents.ExecutionEvent{Type: pkgEvents.EventPipelineStarted})

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fail("", fmt.Errorf("failed to create output directory: %w", err))
		}
	}

	loader := r.newLoader(cfg)
	frames := make(map[dataset.Split]*dataset.Frame, len(dataset.Splits))

	for _, split := range dataset.Splits {
		if err := ctx.Err(); err != nil {
			return fail(string(split), err)
		}

		source := cfg.SourceFor(split)
		emit(pkgEvents.ExecutionEvent{
			Type:  pkgEvents.EventSplitLoading,
			Split: string(split),
			Text:  source,
		})

		start := time.Now()
		frame, err := loader.Load(ctx, string(split), source)
		if err != nil {
			return fail(string(split), fmt.Errorf("failed to load %s split: %w", split, err))
		}
		frames[split] = frame

		rows, cols := frame.Shape()
		report.Splits = append(report.Splits, SplitShape{
			Split:   string(split),
			Source:  source,
			Rows:    rows,
			Columns: cols,
		})
		emit(pkgEvents.ExecutionEvent{
			Type:     pkgEvents.EventSplitLoaded,
			Split:    string(split),
			Rows:     rows,
			Columns:  cols,
			Duration: time.Since(start),
			Text:     source,
		})
	}

	for _, split := range cfg.DistributionSplits {
		summary := stats.Summarize(string(split), frames[split])
		report.Distributions = append(report.Distributions, summary)
		emit(pkgEvents.ExecutionEvent{
			Type:  pkgEvents.EventDistributionComputed,
			Split: string(split),
			Rows:  summary.Rows,
			Metadata: map[string]interface{}{
				"gambling":        summary.Class(dataset.Gambling).Count,
				"non_gambling":    summary.Class(dataset.NonGambling).Count,
				"imbalance_ratio": summary.ImbalanceRatio,
			},
		})

		log.Info().
			Str("split", string(split)).
			Int("rows", summary.Rows).
			Float64("imbalance_ratio", summary.ImbalanceRatio).
			Msg("Class distribution computed")

		warnMissingClasses(diag, split, summary)
	}

	report.Duration = time.Since(report.StartedAt)

	if cfg.WriteSummary {
		path := filepath.Join(cfg.OutputDir, SummaryFileName)
		report.SummaryFile = path
		if err := writeSummary(path, report); err != nil {
			report.SummaryFile = ""
			return fail("", err)
		}
		emit(pkgEvents.ExecutionEvent{Type: pkgEvents.EventSummaryWritten, Text: path})
	}

	emit(pkgEvents.ExecutionEvent{
		Type:     pkgEvents.EventPipelineCompleted,
		Duration: report.Duration,
	})

	log.Info().
		Str("run_id", report.RunID).
		Int("splits", len(report.Splits)).
		Dur("duration", report.Duration).
		Msg("Dataset run completed")

	return report, nil
}

// warnMissingClasses flags a non-empty split in which a label never occurs.
// Such a split counts the label as zero and its ratio may be reported as 0.
func warnMissingClasses(w io.Writer, split dataset.Split, summary stats.Summary) {
	if w == nil || summary.Rows == 0 {
		return
	}
	for _, class := range summary.Classes {
		if class.Count == 0 {
			style.Warning(w, fmt.Sprintf("%s set has no %s rows", split.Title(), class.Name))
		}
	}
}

func writeSummary(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
