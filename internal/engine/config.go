package engine

import (
	"fmt"

	"github.com/lacquerai/gambit/internal/dataset"
)

// DefaultSeed is the random seed recorded for downstream training stages.
const DefaultSeed int64 = 42

// DefaultOutputDir is created at the start of every run.
const DefaultOutputDir = "outputs"

// SummaryFileName is written into the output dir when WriteSummary is set.
const SummaryFileName = "data_summary.json"

// Config describes which splits to load and what to report on them.
type Config struct {
	// DataDir holds train.csv, test.csv and holdout.csv unless a split has
	// an explicit source.
	DataDir string
	// Sources overrides the location of individual splits.
	Sources map[dataset.Split]string
	// Dataset controls column lookup.
	Dataset dataset.Options
	// S3 configures s3:// sources.
	S3 dataset.S3Config

	// OutputDir is created before loading. Empty disables creation.
	OutputDir string
	// WriteSummary writes the report as JSON into OutputDir.
	WriteSummary bool

	// Seed is carried through to the report for later stages.
	Seed int64
	// DistributionSplits lists the splits whose class balance is computed.
	DistributionSplits []dataset.Split
}

// DefaultConfig returns the configuration of the reference script: splits
// under dataset/, distributions of train and test, seed 42.
func DefaultConfig() *Config {
	return &Config{
		DataDir:            dataset.DefaultDataDir,
		Sources:            map[dataset.Split]string{},
		OutputDir:          DefaultOutputDir,
		Seed:               DefaultSeed,
		DistributionSplits: []dataset.Split{dataset.SplitTrain, dataset.SplitTest},
	}
}

// SourceFor returns the URI the split is loaded from.
func (c *Config) SourceFor(split dataset.Split) string {
	if src, ok := c.Sources[split]; ok && src != "" {
		return src
	}
	return split.DefaultPath(c.DataDir)
}

// Validate checks the configuration before a run.
func (c *Config) Validate() error {
	seen := make(map[dataset.Split]bool, len(c.DistributionSplits))
	for _, split := range c.DistributionSplits {
		if _, err := dataset.ParseSplit(string(split)); err != nil {
			return fmt.Errorf("invalid distribution split: %w", err)
		}
		if seen[split] {
			return fmt.Errorf("distribution split %q listed twice", split)
		}
		seen[split] = true
	}
	for split := range c.Sources {
		if _, err := dataset.ParseSplit(string(split)); err != nil {
			return fmt.Errorf("invalid source: %w", err)
		}
	}
	if c.WriteSummary && c.OutputDir == "" {
		return fmt.Errorf("write summary requires an output directory")
	}
	return nil
}
