package report

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/engine"
	"github.com/lacquerai/gambit/internal/stats"
)

var ansiRe = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func frame(neg, pos int) *dataset.Frame {
	f := &dataset.Frame{Columns: []string{"comment", "label"}}
	for i := 0; i < neg; i++ {
		f.Rows = append(f.Rows, dataset.Row{Label: dataset.NonGambling})
	}
	for i := 0; i < pos; i++ {
		f.Rows = append(f.Rows, dataset.Row{Label: dataset.Gambling})
	}
	return f
}

func sampleReport() *engine.Report {
	return &engine.Report{
		RunID:     "00000000-0000-0000-0000-000000000000",
		StartedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Seed:      42,
		OutputDir: "outputs",
		Splits: []engine.SplitShape{
			{Split: "train", Source: "dataset/train.csv", Rows: 1000, Columns: 2},
			{Split: "test", Source: "dataset/test.csv", Rows: 300, Columns: 2},
			{Split: "holdout", Source: "dataset/holdout.csv", Rows: 200, Columns: 3},
		},
		Distributions: []stats.Summary{
			stats.Summarize("train", frame(750, 250)),
			stats.Summarize("test", frame(200, 100)),
		},
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	Text(&buf, sampleReport())
	out := stripANSI(buf.String())

	assert.Contains(t, out, "🚀 GAMBLING DETECTION ML PIPELINE - EXECUTION STARTED!\n"+
		"======================================================================\n")
	assert.Contains(t, out, "📊 LOADING DATA...\n========================================\n")
	assert.Contains(t, out, "✅ Train set: 1000 rows, 2 columns\n")
	assert.Contains(t, out, "✅ Holdout set: 200 rows, 3 columns\n")
	assert.Contains(t, out, "📊 Train set distribution:\n"+
		"  Non-gambling (0): 750 (75.00%)\n"+
		"  Gambling (1): 250 (25.00%)\n"+
		"  Imbalance ratio: 0.333\n")
	assert.Contains(t, out, "  Gambling (1): 100 (33.33%)\n  Imbalance ratio: 0.500\n")
	assert.NotContains(t, out, "Holdout set distribution")
	assert.Contains(t, out, "🔥 Target: F1-score > 0.90 on holdout set!\n")

	snaps.MatchSnapshot(t, out)
}

func TestDistribution_NoNegatives(t *testing.T) {
	var buf bytes.Buffer
	Distribution(&buf, stats.Summarize("holdout", frame(0, 4)))
	out := stripANSI(buf.String())

	assert.Contains(t, out, "Holdout set distribution:")
	assert.Contains(t, out, "  Non-gambling (0): 0 (0.00%)\n")
	assert.Contains(t, out, "  Gambling (1): 4 (100.00%)\n")
	assert.Contains(t, out, "  Imbalance ratio: 0.000\n")
}

func TestWrite_Structured(t *testing.T) {
	r := sampleReport()

	var jsonBuf bytes.Buffer
	require.NoError(t, Write(&jsonBuf, FormatJSON, r))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])
	assert.Len(t, decoded["splits"], 3)

	var yamlBuf bytes.Buffer
	require.NoError(t, Write(&yamlBuf, FormatYAML, r))
	var fromYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))
	assert.Equal(t, 42, fromYAML["seed"])
	assert.Len(t, fromYAML["distributions"], 2)

	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), r))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
