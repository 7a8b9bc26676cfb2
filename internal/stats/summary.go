package stats

import (
	"github.com/lacquerai/gambit/internal/dataset"
)

// ClassShare is the count and percentage of one label in a split.
type ClassShare struct {
	Label   dataset.Label `json:"label" yaml:"label"`
	Name    string        `json:"name" yaml:"name"`
	Count   int           `json:"count" yaml:"count"`
	Percent float64       `json:"percent" yaml:"percent"`
}

// Summary is the serializable class-balance view of a split.
type Summary struct {
	Split          string       `json:"split" yaml:"split"`
	Source         string       `json:"source,omitempty" yaml:"source,omitempty"`
	Rows           int          `json:"rows" yaml:"rows"`
	Columns        int          `json:"columns" yaml:"columns"`
	Classes        []ClassShare `json:"classes" yaml:"classes"`
	ImbalanceRatio float64      `json:"imbalance_ratio" yaml:"imbalance_ratio"`
}

// Summarize builds the Summary of frame under the given split name.
func Summarize(split string, frame *dataset.Frame) Summary {
	d := Count(frame)
	rows, cols := frame.Shape()

	s := Summary{
		Split:          split,
		Rows:           rows,
		Columns:        cols,
		Classes:        make([]ClassShare, 0, len(dataset.Labels)),
		ImbalanceRatio: d.ImbalanceRatio(),
	}
	if frame != nil {
		s.Source = frame.Source
	}

	for _, label := range dataset.Labels {
		s.Classes = append(s.Classes, ClassShare{
			Label:   label,
			Name:    label.Name(),
			Count:   d.Count(label),
			Percent: d.Percent(label),
		})
	}
	return s
}

// Class returns the share for label l.
func (s Summary) Class(l dataset.Label) ClassShare {
	for _, c := range s.Classes {
		if c.Label == l {
			return c
		}
	}
	return ClassShare{Label: l, Name: l.Name()}
}
