package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/minio/selfupdate"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lacquerai/gambit/internal/style"
)

const (
	updateCacheFile = ".gambit/update_cache.json"
	cacheExpiry     = 2 * time.Hour
)

// releasesURL is a variable so tests can point it at a local server.
var releasesURL = "https://api.github.com/repos/lacquerai/gambit/releases/latest"

var updateHTTPClient = &http.Client{Timeout: 10 * time.Second}

// UpdateInfo is the cached result of the last release check.
type UpdateInfo struct {
	LastChecked   time.Time `json:"last_checked"`
	LatestVersion string    `json:"latest_version"`
	CurrentIsOld  bool      `json:"current_is_old"`
	DownloadURL   string    `json:"download_url"`
}

func (u *UpdateInfo) fresh() bool {
	return u != nil && time.Since(u.LastChecked) < cacheExpiry
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update gambit to the latest version",
	Long: `Update gambit to the latest release published on GitHub.

The release asset matching this platform is downloaded and swapped in for the
running binary. A failed swap is rolled back.`,
	Example: `
  gambit update              # Update to latest version
  gambit update --check      # Only report whether an update exists
  gambit update --force      # Reinstall even when already up to date`,
	RunE: func(cmd *cobra.Command, args []string) error {
		checkOnly, _ := cmd.Flags().GetBool("check")
		force, _ := cmd.Flags().GetBool("force")

		info, err := latestUpdate(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}

		if checkOnly {
			printUpdateStatus(cmd.OutOrStdout(), info)
			return nil
		}
		return performUpdate(cmd, info, force)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().Bool("check", false, "only check for updates without updating")
	updateCmd.Flags().Bool("force", false, "update even if already on the latest version")
}

// latestUpdate returns the cached release check, querying GitHub once the
// cache has expired.
func latestUpdate(ctx context.Context) (*UpdateInfo, error) {
	if cached := readUpdateCache(); cached.fresh() {
		return cached, nil
	}

	latest, downloadURL, err := fetchLatestVersion(ctx)
	if err != nil {
		return nil, err
	}

	info := &UpdateInfo{
		LastChecked:   time.Now(),
		LatestVersion: latest,
		CurrentIsOld:  isOutdated(Version, latest),
		DownloadURL:   downloadURL,
	}
	if err := writeUpdateCache(info); err != nil {
		log.Debug().Err(err).Msg("Failed to write update cache")
	}
	return info, nil
}

func printUpdateStatus(w io.Writer, info *UpdateInfo) {
	if info.CurrentIsOld {
		fmt.Fprintf(w, "%s A newer version (%s) is available!\n", style.InfoIcon(), info.LatestVersion)
		fmt.Fprintln(w, "Run 'gambit update' to upgrade.")
		return
	}
	fmt.Fprintf(w, "%s You are running the latest version (%s)\n", style.SuccessIcon(), Version)
}

// isOutdated compares versions as semver, falling back to string inequality
// when either side does not parse. Development builds are never outdated.
func isOutdated(current, latest string) bool {
	cur, latestNorm := normalizeVersion(current), normalizeVersion(latest)

	cv, errCur := semver.NewVersion(cur)
	lv, errLatest := semver.NewVersion(latestNorm)
	if errCur == nil && errLatest == nil {
		return cv.LessThan(lv)
	}
	return current != "dev" && cur != latestNorm
}

func performUpdate(cmd *cobra.Command, info *UpdateInfo, force bool) error {
	out := cmd.OutOrStdout()
	if !info.CurrentIsOld && !force {
		fmt.Fprintf(out, "%s You are already running the latest version (%s)\n", style.SuccessIcon(), Version)
		return nil
	}

	fmt.Fprintf(out, "%s Downloading gambit %s...\n", style.InfoIcon(), info.LatestVersion)

	body, err := download(cmd.Context(), info.DownloadURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := selfupdate.Apply(body, selfupdate.Options{}); err != nil {
		if rerr := selfupdate.RollbackError(err); rerr != nil {
			return fmt.Errorf("failed to roll back broken update: %w", rerr)
		}
		return fmt.Errorf("failed to replace binary: %w", err)
	}

	fmt.Fprintf(out, "%s Successfully updated to gambit %s!\n", style.SuccessIcon(), info.LatestVersion)
	return nil
}

func download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := updateHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download update: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// fetchLatestVersion returns the latest release tag and the download URL of
// the asset built for this platform.
func fetchLatestVersion(ctx context.Context) (version, downloadURL string, err error) {
	body, err := download(ctx, releasesURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer body.Close()

	var release githubRelease
	if err := json.NewDecoder(body).Decode(&release); err != nil {
		return "", "", fmt.Errorf("failed to decode release info: %w", err)
	}

	asset := fmt.Sprintf("gambit_%s_%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		asset += ".exe"
	}
	for _, a := range release.Assets {
		if strings.Contains(a.Name, asset) {
			return release.TagName, a.BrowserDownloadURL, nil
		}
	}
	return "", "", fmt.Errorf("no binary found for platform %s/%s", runtime.GOOS, runtime.GOARCH)
}

func normalizeVersion(version string) string {
	return strings.TrimPrefix(version, "v")
}

func updateCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, updateCacheFile), nil
}

// readUpdateCache returns nil when the cache is missing or unreadable.
func readUpdateCache() *UpdateInfo {
	path, err := updateCachePath()
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var info UpdateInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

func writeUpdateCache(info *UpdateInfo) error {
	path, err := updateCachePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// pendingUpdate returns the cached check when it is fresh and found a newer
// release. It never touches the network.
func pendingUpdate() *UpdateInfo {
	if info := readUpdateCache(); info.fresh() && info.CurrentIsOld {
		return info
	}
	return nil
}
