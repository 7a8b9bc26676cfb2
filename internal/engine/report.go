package engine

import (
	"time"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/stats"
)

// SplitShape is the row and column count of a loaded split.
type SplitShape struct {
	Split   string `json:"split" yaml:"split"`
	Source  string `json:"source" yaml:"source"`
	Rows    int    `json:"rows" yaml:"rows"`
	Columns int    `json:"columns" yaml:"columns"`
}

// Report is the outcome of a run.
type Report struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	StartedAt     time.Time       `json:"started_at" yaml:"started_at"`
	Duration      time.Duration   `json:"duration" yaml:"duration"`
	Seed          int64           `json:"seed" yaml:"seed"`
	OutputDir     string          `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	SummaryFile   string          `json:"summary_file,omitempty" yaml:"summary_file,omitempty"`
	Splits        []SplitShape    `json:"splits" yaml:"splits"`
	Distributions []stats.Summary `json:"distributions" yaml:"distributions"`
}

// Shape returns the shape of split, if it was loaded.
func (r *Report) Shape(split dataset.Split) (SplitShape, bool) {
	for _, s := range r.Splits {
		if s.Split == string(split) {
			return s, true
		}
	}
	return SplitShape{}, false
}

// Distribution returns the class summary of split, if it was computed.
func (r *Report) Distribution(split dataset.Split) (stats.Summary, bool) {
	for _, d := range r.Distributions {
		if d.Split == string(split) {
			return d, true
		}
	}
	return stats.Summary{}, false
}
