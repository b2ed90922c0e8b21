package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/sensorbridge/internal/metrics"
	"github.com/jpalmerr/sensorbridge/internal/store"
	"github.com/jpalmerr/sensorbridge/telemetry"
)

const (
	// streamWriteTimeout bounds a single SSE or WebSocket write so a stalled
	// client cannot pin its handler goroutine. Must be <= shutdown timeout.
	streamWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	defaultTitle     = "Posture Monitor"
	titlePlaceholder = "{{.Title}}"

	// fetchFailedMessage is the fixed error body for an absent fetch.
	fetchFailedMessage = "Failed to fetch data"
)

// FetchFunc performs one bounded fetch; false means absent.
type FetchFunc func(ctx context.Context) (telemetry.Reading, bool)

// Device is the server's view of one configured device.
type Device struct {
	Name   string
	URL    string
	Format string
	Labels map[string]string
	Fetch  FetchFunc
}

// Options configures a [Server].
type Options struct {
	// Store backs the latest, SSE and WebSocket routes.
	Store store.Store

	// Devices are served under /api/devices; the first one also backs
	// /api/sensor-data.
	Devices []Device

	// Port is the TCP port to listen on.
	Port int

	// Assets holds assets/index.html for the dashboard; nil disables "/".
	Assets fs.FS

	// Title replaces the dashboard title placeholder.
	Title string

	// Metrics enables /metrics and stream client gauges when non-nil.
	Metrics *metrics.Metrics

	Logger *slog.Logger
}

// Server handles HTTP requests for the sensorbridge API.
type Server struct {
	store      store.Store
	devices    []Device
	byName     map[string]Device
	port       int
	assets     fs.FS
	title      string
	metrics    *metrics.Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP [Server]. The server is not started until
// [Server.Start] is called.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	byName := make(map[string]Device, len(opts.Devices))
	for _, d := range opts.Devices {
		byName[d.Name] = d
	}

	return &Server{
		store:   opts.Store,
		devices: opts.Devices,
		byName:  byName,
		port:    opts.Port,
		assets:  opts.Assets,
		title:   opts.Title,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Handler returns the complete routing tree wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sensor-data", s.handleSensorData)
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("GET /api/devices/{name}/sensor-data", s.handleDeviceSensorData)
	mux.HandleFunc("GET /api/devices/{name}/latest", s.handleLatest)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.HandleFunc("GET /api/ws", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	if s.assets != nil {
		mux.HandleFunc("GET /{$}", s.handleDashboard)
	}

	return withCORS(mux)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns after the listener is bound. The server
// runs until ctx is cancelled, then shuts down gracefully.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so streaming handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// withCORS allows any origin and answers preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleSensorData fetches the primary device on every request.
func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	if len(s.devices) == 0 {
		s.writeError(w, http.StatusInternalServerError, fetchFailedMessage)
		return
	}
	s.serveFresh(w, r, s.devices[0])
}

// handleDeviceSensorData fetches the named device on every request.
func (s *Server) handleDeviceSensorData(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.byName[r.PathValue("name")]
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown device")
		return
	}
	s.serveFresh(w, r, dev)
}

func (s *Server) serveFresh(w http.ResponseWriter, r *http.Request, dev Device) {
	reading, ok := dev.Fetch(r.Context())
	if !ok {
		s.writeError(w, http.StatusInternalServerError, fetchFailedMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, reading)
}

// handleLatest returns the last sample the poller stored for a device.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := s.byName[name]; !ok {
		s.writeError(w, http.StatusNotFound, "unknown device")
		return
	}

	sample, ok := s.store.Latest(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no reading yet")
		return
	}
	s.writeJSON(w, http.StatusOK, sample)
}

// deviceInfo is the /api/devices list entry.
type deviceInfo struct {
	Name   string                 `json:"name"`
	URL    string                 `json:"url"`
	Format string                 `json:"format"`
	Labels map[string]string      `json:"labels,omitempty"`
	Status telemetry.DeviceStatus `json:"status"`
	Latest *telemetry.Sample      `json:"latest"`
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	infos := make([]deviceInfo, 0, len(s.devices))
	for _, d := range s.devices {
		info := deviceInfo{Name: d.Name, URL: d.URL, Format: d.Format, Labels: d.Labels}
		info.Status = telemetry.DeviceStatus{Device: d.Name, State: telemetry.StateConnecting}
		if status, ok := s.store.Status(d.Name); ok {
			info.Status = status
		}
		if sample, ok := s.store.Latest(d.Name); ok {
			info.Latest = &sample
		}
		infos = append(infos, info)
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDashboard serves the embedded dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleSSE streams samples via Server-Sent Events.
//
// Writes carry a deadline so a slow or vanished client cannot block the
// handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.streamOpened("sse")
	defer s.streamClosed("sse")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	for _, sample := range s.store.GetAll() {
		data, err := json.Marshal(sample)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case sample, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(sample)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown (BaseContext)
			return
		}
	}
}

func (s *Server) streamOpened(transport string) {
	if s.metrics != nil {
		s.metrics.StreamOpened(transport)
	}
}

func (s *Server) streamClosed(transport string) {
	if s.metrics != nil {
		s.metrics.StreamClosed(transport)
	}
}

// writeJSON encodes v with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes {"error": message}.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
