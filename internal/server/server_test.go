package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/engine"
	"github.com/lacquerai/gambit/internal/testhelper"
	pkgEvents "github.com/lacquerai/gambit/pkg/events"
)

type testSuite struct {
	server   *Server
	http     *httptest.Server
	registry *prometheus.Registry
}

func setupTestSuite(t *testing.T, dataDir string, opts ...Option) *testSuite {
	t.Helper()

	pipeline := engine.DefaultConfig()
	pipeline.DataDir = dataDir
	pipeline.OutputDir = ""

	config := DefaultConfig()
	config.Host = "127.0.0.1"
	config.Port = 0
	config.Pipeline = pipeline

	registry := prometheus.NewRegistry()
	srv, err := New(config, append([]Option{WithRegistry(registry)}, opts...)...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testSuite{server: srv, http: ts, registry: registry}
}

func (ts *testSuite) do(t *testing.T, method, path string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, ts.http.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &body))
	}
	return resp, body
}

func TestReportUnavailableBeforeFirstRun(t *testing.T) {
	ts := setupTestSuite(t, testhelper.DataDir(t))

	resp, body := ts.do(t, "GET", "/api/v1/report")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "no report available yet", body["error"])

	resp, _ = ts.do(t, "GET", "/api/v1/splits/train")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRefreshAndReport(t *testing.T) {
	ts := setupTestSuite(t, testhelper.DataDir(t))

	resp, body := ts.do(t, "POST", "/api/v1/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runID := body["run_id"]
	assert.NotEmpty(t, runID)

	resp, body = ts.do(t, "GET", "/api/v1/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, runID, body["run_id"])
	assert.Len(t, body["splits"], 3)
	assert.Len(t, body["distributions"], 2)
	assert.Equal(t, float64(42), body["seed"])
}

func TestGetSplit(t *testing.T) {
	ts := setupTestSuite(t, testhelper.DataDir(t))
	_, err := ts.server.Refresh(context.Background())
	require.NoError(t, err)

	resp, body := ts.do(t, "GET", "/api/v1/splits/train")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	shape := body["shape"].(map[string]any)
	assert.Equal(t, float64(4), shape["rows"])
	assert.Equal(t, float64(2), shape["columns"])
	distribution := body["distribution"].(map[string]any)
	assert.InDelta(t, 1.0/3.0, distribution["imbalance_ratio"].(float64), 1e-9)

	resp, body = ts.do(t, "GET", "/api/v1/splits/holdout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "distribution")

	resp, _ = ts.do(t, "GET", "/api/v1/splits/validation")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRefreshFailureKeepsPreviousReport(t *testing.T) {
	dir := testhelper.DataDir(t)
	ts := setupTestSuite(t, dir)

	resp, _ := ts.do(t, "POST", "/api/v1/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := ts.server.store.Latest()

	ts.server.config.Pipeline.DataDir = filepath.Join(dir, "missing")
	resp, body := ts.do(t, "POST", "/api/v1/refresh")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "train split")

	assert.Same(t, first, ts.server.store.Latest())

	_, health := ts.do(t, "GET", "/health")
	assert.Equal(t, true, health["report_available"])
	assert.Contains(t, health["last_error"], "train split")
}

func TestInitialFailureReportsLastError(t *testing.T) {
	ts := setupTestSuite(t, filepath.Join(t.TempDir(), "missing"))

	_, err := ts.server.Refresh(context.Background())
	require.Error(t, err)

	resp, body := ts.do(t, "GET", "/api/v1/report")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body["last_error"], "no such file")
}

func TestMetrics(t *testing.T) {
	ts := setupTestSuite(t, testhelper.DataDir(t))
	_, err := ts.server.Refresh(context.Background())
	require.NoError(t, err)

	m := ts.server.manager
	assert.Equal(t, float64(4), testutil.ToFloat64(m.splitRows.WithLabelValues("train")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.splitRows.WithLabelValues("holdout")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.classCount.WithLabelValues("train", "non-gambling")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.classCount.WithLabelValues("test", "gambling")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.imbalanceRatio.WithLabelValues("test")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))

	resp, err := http.Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `gambit_class_count{label="gambling",split="train"} 1`)
	assert.Contains(t, text, `gambit_runs_total{status="completed"} 1`)
	assert.Contains(t, text, "gambit_run_duration_seconds_count 1")
}

func TestMetricsDisabled(t *testing.T) {
	pipeline := engine.DefaultConfig()
	pipeline.OutputDir = ""
	config := DefaultConfig()
	config.EnableMetrics = false
	config.Pipeline = pipeline

	srv, err := New(config, WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndCORS(t *testing.T) {
	ts := setupTestSuite(t, testhelper.DataDir(t))

	resp, body := ts.do(t, "GET", "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["report_available"])
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = ts.do(t, "OPTIONS", "/api/v1/refresh")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

// blockingLoader holds every load until release is closed.
type blockingLoader struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingLoader) Load(ctx context.Context, name, uri string) (*dataset.Frame, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &dataset.Frame{Name: name, Columns: []string{"comment", "label"}}, nil
}

func TestRequestID(t *testing.T) {
	ts := setupTestSuite(t, testhelper.DataDir(t))

	resp, _ := ts.do(t, "GET", "/api/v1/report")
	generated := resp.Header.Get("X-Request-ID")
	assert.Len(t, generated, 36)

	req, err := http.NewRequest("GET", ts.http.URL+"/api/v1/report", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-123", resp.Header.Get("X-Request-ID"))
}

func TestConcurrentRefreshConflicts(t *testing.T) {
	loader := &blockingLoader{started: make(chan struct{}), release: make(chan struct{})}
	ts := setupTestSuite(t, t.TempDir(), WithRunnerOptions(engine.WithLoaderFunc(func(*engine.Config) engine.FrameLoader {
		return loader
	})))

	done := make(chan error, 1)
	go func() {
		_, err := ts.server.Refresh(context.Background())
		done <- err
	}()

	select {
	case <-loader.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh never started")
	}

	resp, body := ts.do(t, "POST", "/api/v1/refresh")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, ErrRunInProgress.Error(), body["error"])

	close(loader.release)
	require.NoError(t, <-done)
	assert.NotNil(t, ts.server.store.Latest())
}

func TestEventsWebsocket(t *testing.T) {
	ts := setupTestSuite(t, testhelper.DataDir(t))

	wsURL := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.server.hub.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	resp, _ := ts.do(t, "POST", "/api/v1/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var types []pkgEvents.ExecutionEventType
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var event pkgEvents.ExecutionEvent
		require.NoError(t, conn.ReadJSON(&event))
		types = append(types, event.Type)
		if event.Type == pkgEvents.EventPipelineCompleted {
			break
		}
	}

	assert.Equal(t, pkgEvents.EventPipelineStarted, types[0])
	assert.Contains(t, types, pkgEvents.EventSplitLoaded)
	assert.Contains(t, types, pkgEvents.EventDistributionComputed)
}

func TestRunGracefulShutdown(t *testing.T) {
	pipeline := engine.DefaultConfig()
	pipeline.DataDir = testhelper.DataDir(t)
	pipeline.OutputDir = ""

	config := DefaultConfig()
	config.Host = "127.0.0.1"
	config.Port = 0
	config.Pipeline = pipeline
	config.ShutdownTimeout = 5 * time.Second

	srv, err := New(config, WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.store.Latest() != nil }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewRejectsInvalidPipeline(t *testing.T) {
	config := DefaultConfig()
	config.Pipeline.DistributionSplits = []dataset.Split{"validation"}

	_, err := New(config, WithRegistry(prometheus.NewRegistry()))
	assert.Error(t, err)
}
