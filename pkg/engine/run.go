// Package engine provides a public API for loading the gambling comment
// dataset and computing its class balance programmatically.
//
// Example usage:
//
//	cfg := engine.DefaultConfig()
//	cfg.DataDir = "data/comments"
//
//	report, err := engine.Run(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Run with progress monitoring
//	listener := &MyProgressListener{}
//	report, err = engine.Run(ctx, cfg, engine.WithProgressListener(listener))
package engine

import (
	"context"
	"io"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/engine"
	"github.com/lacquerai/gambit/internal/execcontext"
	"github.com/lacquerai/gambit/pkg/events"
)

// Config describes which splits to load and what to report on them.
type Config = engine.Config

// Report is the outcome of a run.
type Report = engine.Report

// Split identifies a dataset partition.
type Split = dataset.Split

const (
	SplitTrain   = dataset.SplitTrain
	SplitTest    = dataset.SplitTest
	SplitHoldout = dataset.SplitHoldout
)

// DefaultConfig loads dataset/{train,test,holdout}.csv and reports the train
// and test distributions.
func DefaultConfig() *Config {
	return engine.DefaultConfig()
}

// Option represents a functional option for configuring a run.
type Option func(*engine.Runner)

// WithProgressListener creates an Option that configures a progress listener
// for monitoring run events in real-time.
//
// The listener receives pipeline start and completion, one loading and one
// loaded event per split, and one event per computed distribution.
//
// Example:
//
//	type MyListener struct{}
//
//	func (l *MyListener) StartListening(progressChan <-chan events.ExecutionEvent) {
//		for event := range progressChan {
//			fmt.Printf("Event: %s %s\n", event.Type, event.Split)
//		}
//	}
//
//	func (l *MyListener) StopListening() {}
func WithProgressListener(listener events.Listener) Option {
	return func(r *engine.Runner) {
		r.SetProgressListener(listener)
	}
}

// Run loads every split described by cfg and returns the report. A nil cfg
// uses DefaultConfig.
func Run(ctx context.Context, cfg *Config, options ...Option) (*Report, error) {
	runner := engine.NewRunner(nil)

	for _, option := range options {
		option(runner)
	}

	return runner.Run(execcontext.New(ctx, io.Discard, io.Discard), cfg)
}
