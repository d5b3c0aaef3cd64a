package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Luis-avalos1/TaskFlow/internal/service/auth"
	"github.com/Luis-avalos1/TaskFlow/internal/service/project"
	"github.com/Luis-avalos1/TaskFlow/internal/service/task"
	"github.com/Luis-avalos1/TaskFlow/internal/ws"
	"github.com/Luis-avalos1/TaskFlow/pkg/config"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	auth       auth.Service
	projects   project.Service
	tasks      task.Service
	hub        *ws.Hub
	upgrader   websocket.Upgrader
	limiter    RateLimiter
	production bool
	corsOrigin string
	trustProxy bool
	rateLimit  int
	rateWindow time.Duration
	heartbeat  time.Duration
	dbHealth   func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	realtimeClients    prometheus.Gauge
}

// Options carries the router's environment-dependent settings.
type Options struct {
	Production bool
	CORSOrigin string
	// TrustProxy honours X-Forwarded-For. Enable it only behind a proxy that
	// overwrites the header.
	TrustProxy bool
	RateLimit  int
	RateWindow time.Duration
}

// OptionsFromConfig derives router options from the API configuration.
func OptionsFromConfig(cfg config.APIConfig) Options {
	return Options{
		Production: cfg.IsProduction(),
		CORSOrigin: cfg.CORSOrigin,
		TrustProxy: cfg.TrustProxy,
		RateLimit:  cfg.RateLimitMax,
		RateWindow: cfg.RateLimitWindow,
	}
}

const (
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 25 * time.Second
	maxBodyBytes       = 1 << 20
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, projectSvc project.Service, taskSvc task.Service, hub *ws.Hub, limiter RateLimiter, opts Options, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		projects: projectSvc,
		tasks:    taskSvc,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		limiter:    limiter,
		production: opts.Production,
		corsOrigin: strings.TrimSpace(opts.CORSOrigin),
		trustProxy: opts.TrustProxy,
		rateLimit:  opts.RateLimit,
		rateWindow: opts.RateWindow,
		heartbeat:  sseHeartbeat,
		dbHealth:   dbHealth,
	}
	r.upgrader.CheckOrigin = r.allowedOrigin
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP applies CORS and delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.applyCORS(w, req) {
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/health", r.audit("health", r.handleHealth))
	r.mux.Handle("/metrics", promhttp.Handler())

	r.mux.HandleFunc("/api/auth/register", r.audit("auth", r.withRateLimit("auth", r.rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/api/auth/login", r.audit("auth", r.withRateLimit("auth", r.rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/api/auth/refresh", r.audit("auth", r.withRateLimit("auth", r.rateLimitKeyIP, r.handleRefresh)))
	r.mux.HandleFunc("/api/auth/logout", r.audit("auth", r.handlerAuthRate("auth", r.handleLogout)))
	r.mux.HandleFunc("/api/auth/me", r.audit("auth", r.handlerAuthRate("auth", r.handleProfile)))
	r.mux.HandleFunc("/api/auth/profile", r.audit("auth", r.handlerAuthRate("auth", r.handleProfile)))

	r.mux.HandleFunc("/api/projects", r.audit("projects", r.handlerAuthRate("projects", r.handleProjects)))
	r.mux.HandleFunc("/api/projects/", r.audit("project", r.handlerAuthRate("project", r.handleProjectSubroutes)))
	r.mux.HandleFunc("/api/tasks", r.audit("tasks", r.handlerAuthRate("tasks", r.handleTasks)))
	r.mux.HandleFunc("/api/tasks/", r.audit("task", r.handlerAuthRate("task", r.handleTaskSubroutes)))

	r.mux.HandleFunc("/api/ws", r.audit("ws", r.requireStreamAuth(r.withRateLimit("ws", r.rateLimitKeyUser, r.handleWS))))
	r.mux.HandleFunc("/api/events", r.audit("events", r.requireStreamAuth(r.withRateLimit("events", r.rateLimitKeyUser, r.handleEvents))))

	r.mux.HandleFunc("/", r.audit("unmatched", func(w http.ResponseWriter, _ *http.Request) {
		r.notFound(w)
	}))
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	payload := map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			r.logger.Warn("database health check failed", "error", err)
			payload["status"] = "DEGRADED"
			payload["database"] = "down"
			code = http.StatusServiceUnavailable
		} else {
			payload["database"] = "up"
		}
	}
	writeJSON(w, code, payload)
}

func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	r.trackRealtime(1)
	defer r.trackRealtime(-1)
	r.logger.Info("realtime client connected", "user_id", userID)
	r.hub.Serve(context.WithoutCancel(req.Context()), conn, userID)
	r.logger.Info("realtime client disconnected", "user_id", userID)
}

func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	projectID := strings.TrimSpace(req.URL.Query().Get("projectId"))
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.trackRealtime(1)
	defer r.trackRealtime(-1)
	if err := r.hub.Stream(req.Context(), client, userID, projectID, r.heartbeat); err != nil {
		r.fail(w, req, err)
	}
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := r.clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			fields = append(fields, "user_id", info.UserID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

// clientIP returns the peer address. X-Forwarded-For is only consulted when
// the router runs behind a trusted proxy.
func (r *Router) clientIP(req *http.Request) string {
	if r.trustProxy {
		if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

// pathSegments splits the path below prefix, dropping a trailing slash.
func pathSegments(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Route not found")
}
