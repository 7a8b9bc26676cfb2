package engine

import (
	"fmt"
	"io"
	"sync"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/style"
	pkgEvents "github.com/lacquerai/gambit/pkg/events"
)

// CLIProgressTracker shows one spinner per split while it loads and leaves
// the split shape behind once it is done.
type CLIProgressTracker struct {
	mu       sync.Mutex
	writer   io.Writer
	spinners map[string]style.Spinner
	done     bool
}

// NewProgressTracker creates a tracker writing to writer.
func NewProgressTracker(writer io.Writer) *CLIProgressTracker {
	return &CLIProgressTracker{
		writer:   writer,
		spinners: make(map[string]style.Spinner),
	}
}

// StartListening renders events until the channel is closed.
func (pt *CLIProgressTracker) StartListening(progressChan <-chan pkgEvents.ExecutionEvent) {
	pt.mu.Lock()
	pt.done = false
	pt.mu.Unlock()

	for event := range progressChan {
		switch event.Type {
		case pkgEvents.EventSplitLoading:
			pt.startSplit(event.Split, event.Text)
		case pkgEvents.EventSplitLoaded:
			pt.completeSplit(event.Split, event.Rows, event.Columns)
		case pkgEvents.EventPipelineFailed:
			pt.failSplit(event.Split, event.Error)
		}
	}
}

// StopListening stops any spinner still running.
func (pt *CLIProgressTracker) StopListening() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	for name, s := range pt.spinners {
		s.Stop()
		delete(pt.spinners, name)
	}
	pt.done = true
}

// HasCompleted reports whether StopListening has run.
func (pt *CLIProgressTracker) HasCompleted() bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.done
}

func (pt *CLIProgressTracker) startSplit(split, source string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	s := style.NewSpinner(pt.writer)
	s.SetSuffix(fmt.Sprintf(" Loading %s set from %s", style.AccentStyle.Render(split), style.FormatFilePath(source)))
	pt.spinners[split] = s
	s.Start()
}

func (pt *CLIProgressTracker) completeSplit(split string, rows, cols int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	s, ok := pt.spinners[split]
	if !ok {
		return
	}
	s.SetFinalMSG(fmt.Sprintf("✅ %s set: %d rows, %d columns\n", dataset.Split(split).Title(), rows, cols))
	s.Stop()
	delete(pt.spinners, split)
}

func (pt *CLIProgressTracker) failSplit(split, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	s, ok := pt.spinners[split]
	if !ok {
		return
	}
	s.SetFinalMSG(fmt.Sprintf("%s %s set failed: %s\n", style.ErrorIcon(), dataset.Split(split).Title(), message))
	s.Stop()
	delete(pt.spinners, split)
}
