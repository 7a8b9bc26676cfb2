package cli

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lacquerai/gambit/internal/style"
)

var (
	// Global flags
	cfgFile      string
	logLevel     string
	outputFormat string
	quiet        bool
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gambit",
	Short: "Gambit - class balance reports for gambling comment datasets",
	Long: `Gambit loads the train, test and holdout splits of a labeled gambling
comment dataset and reports their shapes and class balance.

Splits can be CSV, TSV or Excel files on disk or in S3. The report is printed
as text, JSON or YAML, and can be served over HTTP with Prometheus metrics.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
		if !viper.GetBool("no_update_check") {
			go triggerBackgroundUpdateCheck()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		showUpdateNotificationIfAvailable(cmd)
	},
}

// Execute runs the command tree. It is called once from main.
func Execute() error {
	return fang.Execute(context.Background(), rootCmd, fang.WithColorSchemeFunc(colorScheme))
}

// colorScheme maps the gambit palette onto fang's help and error output.
func colorScheme(lipgloss.LightDarkFunc) fang.ColorScheme {
	return fang.ColorScheme{
		Base:           style.PrimaryTextColor,
		Title:          style.AccentColor,
		Description:    style.PrimaryTextColor,
		Codeblock:      style.CodeColor,
		Program:        style.AccentColor,
		DimmedArgument: style.MutedColor,
		Comment:        style.MutedColor,
		Flag:           style.InfoColor,
		FlagDefault:    style.MutedColor,
		Command:        style.SuccessColor,
		QuotedString:   style.WarningColor,
		Argument:       style.PrimaryTextColor,
		Help:           style.InfoColor,
		Dash:           style.MutedColor,
		ErrorHeader:    [2]color.Color{style.ErrorColor, style.ErrorBgColor},
		ErrorDetails:   style.ErrorColor,
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	setConfigDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gambit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "disabled", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "text", "output format (text, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	cobra.CheckErr(bindPersistentFlags(viper.GetViper()))
}

// persistentKeys maps the root flags to the config keys read through viper.
// --output is stored as "format": a root "output" key would shadow the
// nested output.dir and output.write_summary settings.
var persistentKeys = map[string]string{
	"log-level": "log-level",
	"output":    "format",
	"quiet":     "quiet",
	"verbose":   "verbose",
}

func bindPersistentFlags(v *viper.Viper) error {
	for name, key := range persistentKeys {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home + "/.gambit")
		viper.AddConfigPath(".")
		viper.AddConfigPath(".gambit")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// GAMBIT_DATA_DIR, GAMBIT_S3_REGION, ...
	viper.SetEnvPrefix("GAMBIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if !viper.GetBool("quiet") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// initLogging configures the global logger from the log-level, verbose and
// output settings.
func initLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := parseLogLevel(viper.GetString("log-level"))
	if viper.GetBool("verbose") && level == zerolog.Disabled {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Structured output modes keep stderr as JSON lines.
	if !viper.GetBool("quiet") && viper.GetString("format") == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// parseLogLevel falls back to Disabled for empty or unknown levels.
func parseLogLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.Disabled
	}
	return level
}

// getVersion returns the version information
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, go: %s)", Version, Commit, Date, GoVersion)
}

// triggerBackgroundUpdateCheck refreshes the update cache if it has expired.
// It prints nothing.
func triggerBackgroundUpdateCheck() {
	if _, err := latestUpdate(context.Background()); err != nil {
		log.Debug().Err(err).Msg("Background update check failed")
	}
}

// showUpdateNotificationIfAvailable prints a notice when the cached release
// check found a newer version.
func showUpdateNotificationIfAvailable(cmd *cobra.Command) {
	if viper.GetBool("quiet") || viper.GetBool("no_update_check") {
		return
	}

	if updateInfo := pendingUpdate(); updateInfo != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%s A newer version (%s) is available! Run 'gambit update' to upgrade.\n",
			style.InfoIcon(), updateInfo.LatestVersion)
	}
}
