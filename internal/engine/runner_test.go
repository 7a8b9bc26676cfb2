package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/execcontext"
	"github.com/lacquerai/gambit/internal/testhelper"
	pkgEvents "github.com/lacquerai/gambit/pkg/events"
)

var ansiRe = regexp.MustCompile("\x1b\\[[0-9;]*m")

// safeBuffer provides thread-safe access to a bytes.Buffer
type safeBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.String()
}

// recordingListener keeps every event it receives.
type recordingListener struct {
	mu      sync.Mutex
	events  []pkgEvents.ExecutionEvent
	stopped bool
}

func (l *recordingListener) StartListening(ch <-chan pkgEvents.ExecutionEvent) {
	for e := range ch {
		l.mu.Lock()
		l.events = append(l.events, e)
		l.mu.Unlock()
	}
}

func (l *recordingListener) StopListening() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}

func (l *recordingListener) types() []pkgEvents.ExecutionEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]pkgEvents.ExecutionEventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

// stubLoader serves frames from memory.
type stubLoader struct {
	frames map[string]*dataset.Frame
	err    map[string]error
	calls  []string
}

func (s *stubLoader) Load(_ context.Context, name, uri string) (*dataset.Frame, error) {
	s.calls = append(s.calls, name+"="+uri)
	if err := s.err[name]; err != nil {
		return nil, err
	}
	return s.frames[name], nil
}

func frame(name string, neg, pos int) *dataset.Frame {
	f := &dataset.Frame{Name: name, Source: name + ".csv", Columns: []string{"comment", "label"}}
	for i := 0; i < neg; i++ {
		f.Rows = append(f.Rows, dataset.Row{Label: dataset.NonGambling})
	}
	for i := 0; i < pos; i++ {
		f.Rows = append(f.Rows, dataset.Row{Label: dataset.Gambling})
	}
	return f
}

func newStub() *stubLoader {
	return &stubLoader{
		frames: map[string]*dataset.Frame{
			"train":   frame("train", 80, 20),
			"test":    frame("test", 45, 5),
			"holdout": frame("holdout", 10, 10),
		},
		err: map[string]error{},
	}
}

func stubRunner(l pkgEvents.Listener, stub *stubLoader) *Runner {
	return NewRunner(l, WithLoaderFunc(func(*Config) FrameLoader { return stub }))
}

func TestRun_Success(t *testing.T) {
	stub := newStub()
	listener := &recordingListener{}
	cfg := DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "outputs")

	report, err := stubRunner(listener, stub).Run(execcontext.Discard(context.Background()), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"train=" + filepath.Join("dataset", "train.csv"),
		"test=" + filepath.Join("dataset", "test.csv"),
		"holdout=" + filepath.Join("dataset", "holdout.csv"),
	}, stub.calls)

	require.Len(t, report.Splits, 3)
	holdout, ok := report.Shape(dataset.SplitHoldout)
	require.True(t, ok)
	assert.Equal(t, 20, holdout.Rows)
	assert.Equal(t, 2, holdout.Columns)

	require.Len(t, report.Distributions, 2)
	train, ok := report.Distribution(dataset.SplitTrain)
	require.True(t, ok)
	assert.InDelta(t, 0.25, train.ImbalanceRatio, 1e-9)
	assert.InDelta(t, 80.0, train.Class(dataset.NonGambling).Percent, 1e-9)

	_, ok = report.Distribution(dataset.SplitHoldout)
	assert.False(t, ok, "holdout distribution is off by default")

	assert.Equal(t, DefaultSeed, report.Seed)
	assert.NotEmpty(t, report.RunID)
	assert.DirExists(t, cfg.OutputDir)
	assert.Empty(t, report.SummaryFile)

	assert.Equal(t, []pkgEvents.ExecutionEventType{
		pkgEvents.EventPipelineStarted,
		pkgEvents.EventSplitLoading, pkgEvents.EventSplitLoaded,
		pkgEvents.EventSplitLoading, pkgEvents.EventSplitLoaded,
		pkgEvents.EventSplitLoading, pkgEvents.EventSplitLoaded,
		pkgEvents.EventDistributionComputed,
		pkgEvents.EventDistributionComputed,
		pkgEvents.EventPipelineCompleted,
	}, listener.types())
	assert.True(t, listener.stopped)
	for _, e := range listener.events {
		assert.Equal(t, report.RunID, e.RunID)
	}
}

func TestRun_WritesSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.WriteSummary = true
	cfg.DistributionSplits = []dataset.Split{dataset.SplitTrain, dataset.SplitTest, dataset.SplitHoldout}

	report, err := stubRunner(nil, newStub()).Run(execcontext.Discard(context.Background()), cfg)
	require.NoError(t, err)
	require.Len(t, report.Distributions, 3)

	path := filepath.Join(cfg.OutputDir, SummaryFileName)
	assert.Equal(t, path, report.SummaryFile)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Len(t, decoded.Distributions, 3)
}

func TestRun_LoadFailure(t *testing.T) {
	stub := newStub()
	stub.err["test"] = os.ErrNotExist
	listener := &recordingListener{}
	cfg := DefaultConfig()
	cfg.OutputDir = ""

	report, err := stubRunner(listener, stub).Run(execcontext.Discard(context.Background()), cfg)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.ErrorContains(t, err, "test split")

	types := listener.types()
	assert.Equal(t, pkgEvents.EventPipelineFailed, types[len(types)-1])
	assert.Len(t, stub.calls, 2, "holdout is not attempted after a failure")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultConfig()
	cfg.OutputDir = ""

	_, err := stubRunner(nil, newStub()).Run(execcontext.Discard(ctx), cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_RealFiles(t *testing.T) {
	dir := testhelper.DataDir(t)

	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.OutputDir = filepath.Join(dir, "outputs")

	report, err := NewRunner(nil).Run(execcontext.Discard(context.Background()), cfg)
	require.NoError(t, err)

	train, _ := report.Distribution(dataset.SplitTrain)
	assert.Equal(t, 4, train.Rows)
	assert.InDelta(t, 1.0/3.0, train.ImbalanceRatio, 1e-9)
	test, _ := report.Distribution(dataset.SplitTest)
	assert.InDelta(t, 1.0, test.ImbalanceRatio, 1e-9)
	holdout, _ := report.Shape(dataset.SplitHoldout)
	assert.Equal(t, 1, holdout.Rows)
}

func TestRun_FileURIDataDir(t *testing.T) {
	dir := testhelper.DataDir(t)

	cfg := DefaultConfig()
	cfg.DataDir = "file://" + dir
	cfg.OutputDir = ""

	report, err := NewRunner(nil).Run(execcontext.Discard(context.Background()), cfg)
	require.NoError(t, err)

	train, ok := report.Shape(dataset.SplitTrain)
	require.True(t, ok)
	assert.Equal(t, 4, train.Rows)
}

func TestRun_WarnsOnMissingClass(t *testing.T) {
	stub := newStub()
	stub.frames["holdout"] = frame("holdout", 0, 3)

	cfg := DefaultConfig()
	cfg.OutputDir = ""
	cfg.DistributionSplits = []dataset.Split{dataset.SplitTrain, dataset.SplitHoldout}

	var stderr bytes.Buffer
	_, err := stubRunner(nil, stub).Run(execcontext.New(context.Background(), io.Discard, &stderr), cfg)
	require.NoError(t, err)

	warnings := ansiRe.ReplaceAllString(stderr.String(), "")
	assert.Contains(t, warnings, "Holdout set has no Non-gambling (0) rows")
	assert.NotContains(t, warnings, "Train set")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.DistributionSplits = []dataset.Split{"validation"}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DistributionSplits = []dataset.Split{dataset.SplitTrain, dataset.SplitTrain}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.OutputDir = ""
	cfg.WriteSummary = true
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Sources[dataset.SplitTest] = "s3://bucket/test.csv"
	assert.Equal(t, "s3://bucket/test.csv", cfg.SourceFor(dataset.SplitTest))
	assert.Equal(t, filepath.Join("dataset", "train.csv"), cfg.SourceFor(dataset.SplitTrain))
}

func TestRun_WithProgressTracker(t *testing.T) {
	t.Setenv("GAMBIT_TEST", "true")

	out := &safeBuffer{}
	tracker := NewProgressTracker(out)
	cfg := DefaultConfig()
	cfg.OutputDir = ""

	_, err := stubRunner(tracker, newStub()).Run(execcontext.New(context.Background(), out, out), cfg)
	require.NoError(t, err)

	deadline := time.Now().Add(10 * time.Second)
	for !tracker.HasCompleted() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	snaps.MatchSnapshot(t, ansiRe.ReplaceAllString(out.String(), ""))
}
