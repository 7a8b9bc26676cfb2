package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Label is the binary class of a comment.
type Label int

const (
	// NonGambling marks a comment unrelated to gambling.
	NonGambling Label = 0
	// Gambling marks a gambling-related comment.
	Gambling Label = 1
)

// Labels lists every valid label in ascending order.
var Labels = []Label{NonGambling, Gambling}

// ErrInvalidLabel is returned when a label value is not 0 or 1.
var ErrInvalidLabel = errors.New("label must be 0 or 1")

func (l Label) String() string {
	switch l {
	case NonGambling:
		return "non-gambling"
	case Gambling:
		return "gambling"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// Name returns the display form used in reports, e.g. "Non-gambling (0)".
func (l Label) Name() string {
	s := l.String()
	return fmt.Sprintf("%s%s (%d)", strings.ToUpper(s[:1]), s[1:], int(l))
}

// ParseLabel converts a raw cell into a Label. Integer and float spellings
// of 0 and 1 are accepted.
func ParseLabel(raw string) (Label, error) {
	switch strings.TrimSpace(raw) {
	case "0", "0.0":
		return NonGambling, nil
	case "1", "1.0":
		return Gambling, nil
	}
	return 0, fmt.Errorf("%w: got %q", ErrInvalidLabel, raw)
}

// LabelError reports an invalid label cell with its location.
type LabelError struct {
	Source string
	Line   int
	Value  string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%s:%d: invalid label %q (expected 0 or 1)", e.Source, e.Line, e.Value)
}

func (e *LabelError) Unwrap() error {
	return ErrInvalidLabel
}
