package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chartgallery/internal/gallery"
	"chartgallery/internal/metrics"
	"chartgallery/internal/pipeline"
	"chartgallery/internal/store"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
	maxBodyBytes     = 1 << 20

	// DefaultMaxDays caps the forecast horizon of one generate request.
	DefaultMaxDays = 3650
)

// Generator runs a generate batch. *pipeline.Batch satisfies it.
type Generator interface {
	Run(ctx context.Context, req pipeline.BatchRequest) []pipeline.Outcome
}

var _ Generator = (*pipeline.Batch)(nil)

// GalleryServer serves the gallery HTTP API.
type GalleryServer struct {
	gallery *gallery.Store
	gen     Generator
	runs    store.RunStore // nil when no run log is configured
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
	maxDays int
}

// Option configures a GalleryServer.
type Option func(*GalleryServer)

// WithRunStore enables GET /api/runs.
func WithRunStore(rs store.RunStore) Option {
	return func(s *GalleryServer) { s.runs = rs }
}

// WithMetrics instruments every request and serves GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *GalleryServer) { s.metrics = m }
}

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *GalleryServer) { s.log = log }
}

// WithClock overrides the time source used for history windows.
func WithClock(now func() time.Time) Option {
	return func(s *GalleryServer) { s.now = now }
}

// WithMaxDays bounds the days of a generate request. n < 1 keeps the default.
func WithMaxDays(n int) Option {
	return func(s *GalleryServer) {
		if n > 0 {
			s.maxDays = n
		}
	}
}

// NewGalleryServer creates a new gallery HTTP server.
func NewGalleryServer(gs *gallery.Store, gen Generator, opts ...Option) *GalleryServer {
	s := &GalleryServer{
		gallery: gs,
		gen:     gen,
		log:     slog.Default(),
		now:     time.Now,
		maxDays: DefaultMaxDays,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "httpapi")
	return s
}

// RegisterRoutes registers all routes on the given mux. Static files are the
// catch-all, so GET on an action path is a plain 404 while other methods on
// it get the mux's 405.
func (s *GalleryServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /delete", s.handleDelete)
	mux.HandleFunc("GET /api/charts", s.handleCharts)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.Handle("GET /", http.FileServer(http.Dir(s.gallery.Dir())))
}

// Handler returns an http.Handler with CORS and metrics middleware.
func (s *GalleryServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.instrument(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *GalleryServer) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// The mux fills in the matched pattern; static files share one label.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		s.metrics.ObserveHTTP(r.Method, path, rec.status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: false, Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// splitSymbols accepts both ["AAPL", "MSFT"] and ["AAPL, MSFT"].
func splitSymbols(raw []string) []string {
	var out []string
	for _, s := range raw {
		out = append(out, strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})...)
	}
	return pipeline.NormalizeSymbols(out)
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

func (s *GalleryServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}
	symbols := splitSymbols(req.Symbols)
	if len(symbols) == 0 || req.Years == nil || req.Days == nil {
		writeError(w, http.StatusBadRequest, ErrMsgMissingParameters)
		return
	}
	if *req.Years <= 0 || *req.Days <= 0 || *req.Days > s.maxDays {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidParameters)
		return
	}

	now := s.now()
	start, end := pipeline.Window(now, *req.Years)
	outcomes := s.gen.Run(r.Context(), pipeline.BatchRequest{
		Symbols: symbols,
		Years:   *req.Years,
		Days:    *req.Days,
		Start:   start,
		End:     end,
		Now:     now,
	})

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	s.log.Info("generate finished", "symbols", len(symbols), "failed", failed)

	s.rebuild()
	writeJSON(w, Response{Success: true})
}

// handleIndex serves index.html as is. http.FileServer and http.ServeFile
// both redirect it to "/".
func (s *GalleryServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(s.gallery.Dir(), gallery.IndexFile))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, gallery.IndexFile, fi.ModTime(), f)
}

func (s *GalleryServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, ErrMsgMissingParameters)
		return
	}

	if err := s.gallery.DeleteFile(req.Filename); err != nil {
		s.log.Error("deleting artifact", "filename", req.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, ErrMsgInternal)
		return
	}
	s.rebuild()
	writeJSON(w, Response{Success: true})
}

// rebuild refreshes index.html. Failures are logged only.
func (s *GalleryServer) rebuild() {
	if _, err := s.gallery.Rebuild(); err != nil {
		s.log.Error("rebuilding index", "error", err)
	}
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func (s *GalleryServer) handleCharts(w http.ResponseWriter, r *http.Request) {
	idx, err := s.gallery.Index()
	if err != nil {
		s.log.Error("scanning gallery", "error", err)
		writeError(w, http.StatusInternalServerError, ErrMsgInternal)
		return
	}
	writeJSON(w, idx)
}

func (s *GalleryServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, ErrMsgInvalidParameters)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	resp := RunsResponse{Runs: []RunJSON{}}
	if s.runs == nil {
		writeJSON(w, resp)
		return
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.log.Error("listing runs", "error", err)
		writeError(w, http.StatusInternalServerError, ErrMsgInternal)
		return
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, runToJSON(run))
	}
	writeJSON(w, resp)
}

func (s *GalleryServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}
