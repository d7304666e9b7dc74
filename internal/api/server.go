// Package api exposes routes and navigation sessions over HTTP.
package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/deadreckon/internal/httputil"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/report"
	"github.com/banshee-data/deadreckon/internal/route"
	"github.com/banshee-data/deadreckon/internal/serialmux"
	"github.com/banshee-data/deadreckon/internal/units"
)

const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Options wire a Server to its collaborators. Only Manager is required.
type Options struct {
	Manager  *navigation.Manager
	Routes   RouteStore // nil keeps routes in memory
	Fetcher  route.Fetcher
	Fallback route.FallbackOptions
	// Units is the default display unit for speeds; ?units= overrides it.
	Units         string
	TraceCapacity int // 0 disables per-session traces
	// Serial, when set, enables attaching the live IMU feed to a session.
	Serial serialmux.SerialMuxInterface
	// AssetsHost overrides the go-echarts CDN for chart pages.
	AssetsHost string
}

type Server struct {
	manager    *navigation.Manager
	routes     RouteStore
	fetcher    route.Fetcher
	fallback   route.FallbackOptions
	units      string
	traceCap   int
	serial     serialmux.SerialMuxInterface
	assetsHost string

	mu       sync.Mutex
	traces   map[string]*report.Trace
	attached string // session receiving the serial feed
}

func NewServer(o Options) *Server {
	if o.Routes == nil {
		o.Routes = newMemoryRouteStore()
	}
	if o.Units == "" {
		o.Units = units.MPS
	}
	return &Server{
		manager:    o.Manager,
		routes:     o.Routes,
		fetcher:    o.Fetcher,
		fallback:   o.Fallback,
		units:      o.Units,
		traceCap:   o.TraceCapacity,
		serial:     o.Serial,
		assetsHost: o.AssetsHost,
		traces:     make(map[string]*report.Trace),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/routes", s.handleRoutesOrCreate)
	mux.HandleFunc("/api/routes/", s.handleRouteByID)
	mux.HandleFunc("/api/sessions", s.handleSessionsOrCreate)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	if s.serial != nil {
		mux.HandleFunc("/api/imu/command", s.sendIMUCommand)
	}
	return mux
}

// displayUnits returns the ?units= override or the server default.
func (s *Server) displayUnits(r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, true
	}
	if !units.IsValid(u) {
		return "", false
	}
	return u, true
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"units":          s.units,
		"valid_units":    units.ValidUnits,
		"trace_capacity": s.traceCap,
		"serial":         s.serial != nil,
	})
}

func (s *Server) traceFor(id string) *report.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traces[id]
}
