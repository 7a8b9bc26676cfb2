package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lacquerai/gambit/internal/server"
	"github.com/lacquerai/gambit/internal/style"
)

var (
	// Serve command flags
	servePort    int
	serveHost    string
	serveRefresh time.Duration
	serveMetrics bool
	serveCORS    bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset report over HTTP",
	Long: `Start an HTTP server that keeps the latest dataset report in memory.

The server provides:
- REST API for the report and individual splits
- POST /api/v1/refresh to reload the splits
- WebSocket streaming of run progress
- Prometheus metrics for split sizes and class balance

Examples:
  gambit serve                             # Serve ./dataset on localhost:8080
  gambit serve --port 9090 --host 0.0.0.0  # Custom host and port
  gambit serve --refresh 10m               # Reload the splits every 10 minutes
  gambit serve --data-dir s3://bucket/data # Serve splits stored in S3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindDataFlags(cmd); err != nil {
			return err
		}
		return startServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addDataFlags(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "server port")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "server host")
	serveCmd.Flags().DurationVar(&serveRefresh, "refresh", 0, "reload the splits on this interval (0 disables)")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", true, "enable Prometheus metrics endpoint")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", true, "enable CORS headers")
}

func startServer(cmd *cobra.Command) error {
	pipeline, err := loadEngineConfig(viper.GetViper())
	if err != nil {
		return err
	}

	config := server.DefaultConfig()
	config.Host = serveHost
	config.Port = servePort
	config.RefreshInterval = serveRefresh
	config.EnableMetrics = serveMetrics
	config.EnableCORS = serveCORS
	config.Pipeline = pipeline

	srv, err := server.New(config)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	out := cmd.OutOrStdout()
	if !viper.GetBool("quiet") {
		style.Success(out, fmt.Sprintf("Gambit server starting at http://%s", srv.GetAddr()))
		fmt.Fprintf(out, "📊 Report: http://%s/api/v1/report\n", srv.GetAddr())
		fmt.Fprintf(out, "🔌 Events: ws://%s/api/v1/events\n", srv.GetAddr())
		if serveMetrics {
			fmt.Fprintf(out, "📈 Metrics: http://%s/metrics\n", srv.GetAddr())
		}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
