package style

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner is the progress indicator shown while a split is loading.
type Spinner interface {
	SetSuffix(suffix string)
	SetFinalMSG(finalMSG string)
	Start()
	Stop()
}

// TestSpinner writes every state change on its own line so output can be
// compared against snapshots.
type TestSpinner struct {
	mu       sync.Mutex
	writer   io.Writer
	label    func(a ...interface{}) string
	suffix   string
	finalMSG string
	active   bool
}

// NewTestSpinner returns a TestSpinner writing to w.
func NewTestSpinner(w io.Writer) *TestSpinner {
	c := color.New(color.FgWhite)
	c.DisableColor()
	return &TestSpinner{writer: w, label: c.SprintFunc()}
}

func (s *TestSpinner) SetSuffix(suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suffix = suffix
	fmt.Fprintf(s.writer, "%s %s\n", s.label("[SET SUFFIX]"), suffix)
}

func (s *TestSpinner) SetFinalMSG(finalMSG string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalMSG = finalMSG
}

func (s *TestSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	fmt.Fprintln(s.writer, s.label("[SPINNER START]"))
}

func (s *TestSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	fmt.Fprintln(s.writer, s.label("[SPINNER STOP]"))
	if s.finalMSG != "" {
		fmt.Fprintf(s.writer, "%s %s", s.label("[FINAL MSG]"), s.finalMSG)
	}
}

// TerminalSpinner animates in place using briandowns/spinner.
type TerminalSpinner struct {
	spinner *spinner.Spinner
}

// NewTerminalSpinner wraps a briandowns spinner.
func NewTerminalSpinner(cs []string, d time.Duration, options ...spinner.Option) *TerminalSpinner {
	s := spinner.New(cs, d, options...)
	_ = s.Color("magenta")
	return &TerminalSpinner{spinner: s}
}

func (s *TerminalSpinner) SetSuffix(suffix string) {
	s.spinner.Lock()
	s.spinner.Suffix = suffix
	s.spinner.Unlock()
}

func (s *TerminalSpinner) SetFinalMSG(finalMSG string) {
	s.spinner.Lock()
	s.spinner.FinalMSG = finalMSG
	s.spinner.Unlock()
}

func (s *TerminalSpinner) Start() {
	s.spinner.Start()
}

func (s *TerminalSpinner) Stop() {
	s.spinner.Stop()
}

// NewSpinner returns a terminal spinner writing to w, or a TestSpinner
// when GAMBIT_TEST=true.
func NewSpinner(w io.Writer) Spinner {
	if os.Getenv("GAMBIT_TEST") == "true" {
		return NewTestSpinner(w)
	}

	return NewTerminalSpinner(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
}
