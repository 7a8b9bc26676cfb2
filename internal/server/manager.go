package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/engine"
	"github.com/lacquerai/gambit/internal/execcontext"
	pkgEvents "github.com/lacquerai/gambit/pkg/events"
)

// ErrRunInProgress is returned when a refresh is requested while another
// one is still running.
var ErrRunInProgress = errors.New("a dataset run is already in progress")

// RunManager runs the pipeline one at a time, forwards its progress to the
// websocket hub and keeps the metrics in sync with the latest report.
type RunManager struct {
	runner  *engine.Runner
	hub     *Hub
	mu      sync.Mutex
	running bool

	splitRows      *prometheus.GaugeVec
	classCount     *prometheus.GaugeVec
	imbalanceRatio *prometheus.GaugeVec
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewRunManager creates a run manager and registers its metrics with
// registerer. A nil registerer skips registration.
func NewRunManager(registerer prometheus.Registerer, hub *Hub, opts ...engine.RunnerOption) (*RunManager, error) {
	rm := &RunManager{
		hub: hub,
		splitRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gambit_split_rows",
			Help: "Number of rows in each loaded split",
		}, []string{"split"}),
		classCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gambit_class_count",
			Help: "Number of comments per label in each split with a computed distribution",
		}, []string{"split", "label"}),
		imbalanceRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gambit_imbalance_ratio",
			Help: "Gambling to non-gambling ratio per split",
		}, []string{"split"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gambit_runs_total",
			Help: "Total dataset runs by status",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gambit_run_duration_seconds",
			Help:    "Dataset run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	if registerer != nil {
		for _, c := range []prometheus.Collector{rm.splitRows, rm.classCount, rm.imbalanceRatio, rm.runsTotal, rm.runDuration} {
			if err := registerer.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register metrics: %w", err)
			}
		}
	}

	rm.runner = engine.NewRunner(rm, opts...)
	return rm, nil
}

// Run executes the pipeline with cfg. It returns ErrRunInProgress when
// another run has not finished yet.
func (rm *RunManager) Run(ctx context.Context, cfg *engine.Config) (*engine.Report, error) {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return nil, ErrRunInProgress
	}
	rm.running = true
	rm.mu.Unlock()

	defer func() {
		rm.mu.Lock()
		rm.running = false
		rm.mu.Unlock()
	}()

	start := time.Now()
	report, err := rm.runner.Run(execcontext.New(ctx, io.Discard, io.Discard), cfg)
	rm.runDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		rm.runsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	rm.runsTotal.WithLabelValues("completed").Inc()
	rm.record(report)
	return report, nil
}

// Running reports whether a run is in progress.
func (rm *RunManager) Running() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.running
}

func (rm *RunManager) record(report *engine.Report) {
	for _, shape := range report.Splits {
		rm.splitRows.WithLabelValues(shape.Split).Set(float64(shape.Rows))
	}
	for _, summary := range report.Distributions {
		for _, label := range dataset.Labels {
			rm.classCount.WithLabelValues(summary.Split, label.String()).Set(float64(summary.Class(label).Count))
		}
		rm.imbalanceRatio.WithLabelValues(summary.Split).Set(summary.ImbalanceRatio)
	}
}

// StartListening forwards run events to websocket clients.
func (rm *RunManager) StartListening(progressChan <-chan pkgEvents.ExecutionEvent) {
	for event := range progressChan {
		rm.hub.Broadcast(event)
	}
}

// StopListening is a no-op; clients stay connected across runs.
func (rm *RunManager) StopListening() {}

// Hub tracks websocket clients subscribed to run events.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// Add subscribes conn to future events.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

// Remove unsubscribes conn.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends event to every client. Clients that fail to receive it are
// dropped.
func (h *Hub) Broadcast(event pkgEvents.ExecutionEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", string(event.Type)).Msg("Failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteMessage(websocket.TextMessage, eventJSON); err != nil {
			log.Debug().Err(err).Msg("Dropping websocket client")
			client.Close()
			delete(h.clients, client)
		}
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		_ = client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		client.Close()
		delete(h.clients, client)
	}
}
