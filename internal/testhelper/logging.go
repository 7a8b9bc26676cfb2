// Package testhelper holds shared test setup. Importing it silences zerolog
// unless GAMBIT_TEST_LOG is set.
package testhelper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func init() {
	if testing.Testing() && os.Getenv("GAMBIT_TEST_LOG") == "" {
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}
}

// Splits is a small train/test/holdout set with known class balance:
// train 3:1, test 1:1, holdout all gambling.
var Splits = map[string]string{
	"train.csv":   "comment,label\nnice stream,0\ngood game,0\nwhat a goal,0\nbest casino 100% bonus,1\n",
	"test.csv":    "comment,label\nlovely,0\nslot gacor hari ini,1\n",
	"holdout.csv": "comment,label\ndeposit via pulsa,1\n",
}

// WriteFiles writes files (name to content) into dir and returns dir.
func WriteFiles(t testing.TB, dir string, files map[string]string) string {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return dir
}

// DataDir writes Splits into a fresh temp dir.
func DataDir(t testing.TB) string {
	t.Helper()
	return WriteFiles(t, t.TempDir(), Splits)
}
