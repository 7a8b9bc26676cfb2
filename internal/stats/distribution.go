// Package stats computes class-balance statistics over loaded splits.
package stats

import (
	"github.com/lacquerai/gambit/internal/dataset"
)

// Distribution holds label value counts for one frame.
type Distribution struct {
	Total  int
	counts map[dataset.Label]int
}

// Count tallies the labels of every row in frame.
func Count(frame *dataset.Frame) Distribution {
	d := Distribution{counts: make(map[dataset.Label]int, len(dataset.Labels))}
	if frame == nil {
		return d
	}
	for _, row := range frame.Rows {
		d.counts[row.Label]++
		d.Total++
	}
	return d
}

// Count returns the number of rows labeled l. Absent labels count zero.
func (d Distribution) Count(l dataset.Label) int {
	return d.counts[l]
}

// Percent returns the share of rows labeled l, in percent.
func (d Distribution) Percent(l dataset.Label) float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.counts[l]) / float64(d.Total) * 100
}

// ImbalanceRatio returns count[1] / count[0], or 0 when there are no
// non-gambling rows.
func (d Distribution) ImbalanceRatio() float64 {
	neg := d.counts[dataset.NonGambling]
	if neg == 0 {
		return 0
	}
	return float64(d.counts[dataset.Gambling]) / float64(neg)
}
