package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Split identifies one of the three dataset partitions.
type Split string

const (
	SplitTrain   Split = "train"
	SplitTest    Split = "test"
	SplitHoldout Split = "holdout"
)

// Splits lists the partitions in load order.
var Splits = []Split{SplitTrain, SplitTest, SplitHoldout}

// DefaultDataDir is where splits are looked up when no paths are configured.
const DefaultDataDir = "dataset"

// Title returns the capitalized split name, e.g. "Train".
func (s Split) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// DefaultPath returns <dir>/<split>.csv. URI dirs such as s3:// or file://
// are joined with a slash so the scheme separator survives.
func (s Split) DefaultPath(dir string) string {
	if dir == "" {
		dir = DefaultDataDir
	}
	if strings.Index(dir, "://") > 0 {
		return strings.TrimSuffix(dir, "/") + "/" + string(s) + ".csv"
	}
	return filepath.Join(dir, string(s)+".csv")
}

// ParseSplit validates a split name.
func ParseSplit(name string) (Split, error) {
	s := Split(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Splits {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown split %q (expected train, test or holdout)", name)
}
