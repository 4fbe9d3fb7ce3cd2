// Package server serves the built site and pushes reload notifications to
// open pages over a websocket.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/snazzy/internal/build"
	"github.com/conneroisu/snazzy/internal/config"
	"github.com/conneroisu/snazzy/internal/logging"
	"github.com/conneroisu/snazzy/internal/version"
)

const (
	// ReloadPath is the websocket endpoint pages connect to.
	ReloadPath = "/_reload"

	// HealthPath reports server and build status.
	HealthPath = "/health"
)

// reloadScript is injected before </body> of every served HTML page.
const reloadScript = `<script>(function(){var ws=new WebSocket((location.protocol==="https:"?"wss://":"ws://")+location.host+"` + ReloadPath + `");ws.onmessage=function(e){var m=JSON.parse(e.data);if(m.type==="build_success"){location.reload();}else if(m.type==="build_error"){console.error(m.content);}};})();</script>`

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DevServer serves the site directory with live reload capability
type DevServer struct {
	config      config.ServerConfig
	root        string
	hub         *Hub
	logger      logging.Logger
	httpServer  *http.Server
	serverMutex sync.RWMutex

	statusMutex sync.RWMutex
	lastResult  *build.Result
	metrics     MetricsSource
}

// MetricsSource reports the build counters shown by the health endpoint.
// *build.BuildPipeline implements it.
type MetricsSource interface {
	GetMetrics() build.BuildMetrics
}

// New creates a server for the site directory root.
func New(cfg config.ServerConfig, root string, logger logging.Logger) *DevServer {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	return &DevServer{
		config: cfg,
		root:   root,
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Addr returns the configured listen address.
func (s *DevServer) Addr() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
}

// Hub returns the reload hub.
func (s *DevServer) Hub() *Hub {
	return s.hub
}

// SetMetricsSource makes the health endpoint report the counters of src.
func (s *DevServer) SetMetricsSource(src MetricsSource) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	s.metrics = src
}

// Handler returns the HTTP handler serving the site and the reload endpoint.
func (s *DevServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ReloadPath, s.handleWebSocket)
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.HandleFunc("/", s.handleStatic)

	return s.logRequests(mux)
}

// Start runs the hub and serves until ctx is cancelled.
func (s *DevServer) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "server shutdown failed")
		}
	}()

	s.logger.Info(ctx, "serving site", "addr", "http://"+s.Addr(), "root", s.root)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes reload connections.
func (s *DevServer) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()

	s.serverMutex.RLock()
	server := s.httpServer
	s.serverMutex.RUnlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// HandleBuildResult broadcasts the outcome of an application build. It is
// meant to be registered as a build pipeline callback.
func (s *DevServer) HandleBuildResult(result *build.Result) {
	s.statusMutex.Lock()
	s.lastResult = result
	s.statusMutex.Unlock()

	msg := UpdateMessage{
		Target:    result.App,
		Timestamp: time.Now(),
	}
	if result.Err != nil {
		msg.Type = "build_error"
		msg.Content = result.Err.Error()
	} else {
		msg.Type = "build_success"
	}
	s.broadcastMessage(msg)
}

func (s *DevServer) broadcastMessage(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn(context.Background(), err, "failed to marshal message")
		data = []byte(`{"type":"build_success"}`)
	}
	s.hub.Broadcast(data)
}

func (s *DevServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	file := filepath.Join(s.root, filepath.FromSlash(name))
	if info, err := os.Stat(file); err == nil && info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		file = filepath.Join(file, "index.html")
	}

	if strings.HasSuffix(file, ".html") {
		if data, err := os.ReadFile(file); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			_, _ = w.Write(injectReload(data))
			return
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	http.FileServer(http.Dir(s.root)).ServeHTTP(w, r)
}

// injectReload inserts the reload script before the closing body tag, or
// appends it when the page has none.
func injectReload(page []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page, reloadScript...)
	}

	out := make([]byte, 0, len(page)+len(reloadScript))
	out = append(out, page[:i]...)
	out = append(out, reloadScript...)
	return append(out, page[i:]...)
}

func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"clients":   s.hub.Count(),
	}

	s.statusMutex.RLock()
	if s.lastResult != nil {
		last := map[string]interface{}{
			"app":        s.lastResult.App,
			"components": s.lastResult.Components,
			"duration":   s.lastResult.Duration.String(),
		}
		if s.lastResult.Err != nil {
			last["error"] = s.lastResult.Err.Error()
			health["status"] = "degraded"
		}
		health["last_build"] = last
	}
	metrics := s.metrics
	s.statusMutex.RUnlock()

	if metrics != nil {
		m := metrics.GetMetrics()
		health["builds"] = map[string]interface{}{
			"total":            m.TotalBuilds,
			"successful":       m.SuccessfulBuilds,
			"failed":           m.FailedBuilds,
			"success_rate":     m.GetSuccessRate(),
			"average_duration": m.AverageDuration.String(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "failed to encode health response")
	}
}

func (s *DevServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *DevServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOrigins(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade error")
		return
	}

	s.hub.Serve(conn)
}

func (s *DevServer) allowedOrigins() []string {
	port := fmt.Sprintf("%d", s.config.Port)
	return []string{
		net.JoinHostPort(s.config.Host, port),
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
	}
}

// checkOrigin accepts same-host origins and the configured listen address
// under its local aliases.
func (s *DevServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	host, err := parseOrigin(origin)
	if err != nil {
		return false
	}

	if strings.EqualFold(host, r.Host) {
		return true
	}
	for _, allowed := range s.allowedOrigins() {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
