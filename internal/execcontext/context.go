// Package execcontext carries the per-invocation I/O and cancellation context.
package execcontext

import (
	"context"
	"io"
	"os"
)

// RunContext bundles the context and output streams of a single command
// invocation so that callers never write to os.Stdout directly.
type RunContext struct {
	Context context.Context
	StdOut  io.Writer
	StdErr  io.Writer
}

// New returns a RunContext, defaulting nil streams to the process streams.
func New(ctx context.Context, stdout, stderr io.Writer) RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return RunContext{Context: ctx, StdOut: stdout, StdErr: stderr}
}

// Discard returns a RunContext that drops all output.
func Discard(ctx context.Context) RunContext {
	return New(ctx, io.Discard, io.Discard)
}

// Err returns the writer for diagnostics.
func (rc RunContext) Err() io.Writer {
	return rc.StdErr
}
