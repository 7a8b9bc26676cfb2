package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingColumn is returned when the label column is absent from the header.
	ErrMissingColumn = errors.New("required column not found")
	// ErrEmptyDataset is returned when a source has no header row.
	ErrEmptyDataset = errors.New("dataset is empty")
)

// DefaultLabelColumn is the header name of the class column.
const DefaultLabelColumn = "label"

// textColumnCandidates are tried in order when no text column is configured.
var textColumnCandidates = []string{"comment", "text", "comment_text", "content"}

// Options controls how a split is decoded.
type Options struct {
	// LabelColumn names the class column. Defaults to "label".
	LabelColumn string
	// TextColumn names the comment column. When empty the first of
	// comment, text, comment_text, content present in the header is used.
	TextColumn string
}

func (o Options) labelColumn() string {
	if o.LabelColumn == "" {
		return DefaultLabelColumn
	}
	return o.LabelColumn
}

// record is a decoded row with its source line.
type record struct {
	fields []string
	line   int
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

func indexOf(header []string, name string) int {
	want := normalizeColumnName(name)
	for i, col := range header {
		if normalizeColumnName(col) == want {
			return i
		}
	}
	return -1
}

func (o Options) textIndex(header []string) int {
	if o.TextColumn != "" {
		return indexOf(header, o.TextColumn)
	}
	for _, candidate := range textColumnCandidates {
		if idx := indexOf(header, candidate); idx != -1 {
			return idx
		}
	}
	return -1
}

// buildFrame turns raw records into a Frame. The first record is the header.
func buildFrame(name, source string, records []record, opts Options) (*Frame, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyDataset)
	}

	header := make([]string, len(records[0].fields))
	for i, col := range records[0].fields {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	}

	labelIdx := indexOf(header, opts.labelColumn())
	if labelIdx == -1 {
		return nil, fmt.Errorf("%s: %w: %q", source, ErrMissingColumn, opts.labelColumn())
	}
	textIdx := opts.textIndex(header)

	frame := &Frame{
		Name:    name,
		Source:  source,
		Columns: header,
		Rows:    make([]Row, 0, len(records)-1),
	}

	for _, rec := range records[1:] {
		if isBlank(rec.fields) {
			continue
		}
		fields := rec.fields
		// Pad short rows so column lookups never go out of range.
		for len(fields) < len(header) {
			fields = append(fields, "")
		}

		label, err := ParseLabel(fields[labelIdx])
		if err != nil {
			return nil, &LabelError{Source: source, Line: rec.line, Value: fields[labelIdx]}
		}

		row := Row{Label: label, Line: rec.line}
		if textIdx != -1 {
			row.Comment = fields[textIdx]
		}
		frame.Rows = append(frame.Rows, row)
	}

	return frame, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
