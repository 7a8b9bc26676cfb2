package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/engine"
)

// setConfigDefaults registers every dataset key so that env vars and config
// files are picked up even when the flag is not present.
func setConfigDefaults(v *viper.Viper) {
	defaults := engine.DefaultConfig()

	v.SetDefault("data.dir", defaults.DataDir)
	v.SetDefault("data.train", "")
	v.SetDefault("data.test", "")
	v.SetDefault("data.holdout", "")
	v.SetDefault("data.label_column", dataset.DefaultLabelColumn)
	v.SetDefault("data.text_column", "")
	v.SetDefault("output.dir", defaults.OutputDir)
	v.SetDefault("output.write_summary", false)
	v.SetDefault("pipeline.seed", defaults.Seed)
	v.SetDefault("pipeline.distribution_splits", []string{"train", "test"})
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("no_update_check", false)
}

// dataFlags maps flag names to the config keys they override.
var dataFlags = map[string]string{
	"data-dir":      "data.dir",
	"train":         "data.train",
	"test":          "data.test",
	"holdout":       "data.holdout",
	"label-column":  "data.label_column",
	"text-column":   "data.text_column",
	"output-dir":    "output.dir",
	"write-summary": "output.write_summary",
	"seed":          "pipeline.seed",
	"distribution":  "pipeline.distribution_splits",
	"s3-region":     "s3.region",
	"s3-endpoint":   "s3.endpoint",
}

// addDataFlags registers the dataset flags shared by run and serve.
func addDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("data-dir", dataset.DefaultDataDir, "directory (or s3:// prefix) holding train.csv, test.csv and holdout.csv")
	f.String("train", "", "train split location (overrides --data-dir)")
	f.String("test", "", "test split location (overrides --data-dir)")
	f.String("holdout", "", "holdout split location (overrides --data-dir)")
	f.String("label-column", dataset.DefaultLabelColumn, "name of the label column")
	f.String("text-column", "", "name of the comment column (default: auto-detect)")
	f.String("output-dir", engine.DefaultOutputDir, "directory created for pipeline outputs")
	f.Bool("write-summary", false, "write "+engine.SummaryFileName+" into the output directory")
	f.Int64("seed", engine.DefaultSeed, "random seed recorded for the training stages")
	f.StringSlice("distribution", []string{"train", "test"}, "splits whose class distribution is reported")
	f.String("s3-region", "", "AWS region for s3:// sources")
	f.String("s3-endpoint", "", "custom S3 endpoint, e.g. a MinIO URL")
}

// bindDataFlags binds the flags of cmd to the global config. It runs when the
// command executes so run and serve do not overwrite each other's bindings.
func bindDataFlags(cmd *cobra.Command) error {
	for name, key := range dataFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// loadEngineConfig builds the run configuration from v.
func loadEngineConfig(v *viper.Viper) (*engine.Config, error) {
	cfg := engine.DefaultConfig()

	cfg.DataDir = v.GetString("data.dir")
	for _, split := range dataset.Splits {
		if src := strings.TrimSpace(v.GetString("data." + string(split))); src != "" {
			cfg.Sources[split] = src
		}
	}
	cfg.Dataset = dataset.Options{
		LabelColumn: v.GetString("data.label_column"),
		TextColumn:  v.GetString("data.text_column"),
	}
	cfg.S3 = dataset.S3Config{
		Region:   v.GetString("s3.region"),
		Endpoint: v.GetString("s3.endpoint"),
	}
	cfg.OutputDir = v.GetString("output.dir")
	cfg.WriteSummary = v.GetBool("output.write_summary")
	cfg.Seed = v.GetInt64("pipeline.seed")

	splits, err := parseSplitList(v.GetStringSlice("pipeline.distribution_splits"))
	if err != nil {
		return nil, err
	}
	cfg.DistributionSplits = splits

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseSplitList accepts both list values and comma separated strings, as
// GAMBIT_PIPELINE_DISTRIBUTION_SPLITS=train,test,holdout arrives as one item.
func parseSplitList(values []string) ([]dataset.Split, error) {
	var splits []dataset.Split
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			split, err := dataset.ParseSplit(name)
			if err != nil {
				return nil, err
			}
			splits = append(splits, split)
		}
	}
	return splits, nil
}
