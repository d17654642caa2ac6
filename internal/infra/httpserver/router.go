package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/civic-lens/internal/application/analysis"
	"github.com/bryanwahyu/civic-lens/internal/domain/report"
	"github.com/bryanwahyu/civic-lens/internal/metrics"
	"github.com/bryanwahyu/civic-lens/internal/middleware"
)

// maxBodyBytes bounds the /analyze body; inline base64 images count against it.
const maxBodyBytes = 10 << 20

var allowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

type Router struct {
	analysisSvc *appanalysis.Service
}

// NewRouter wires the gateway. checkers feed /healthz and may be empty.
func NewRouter(analysisSvc *appanalysis.Service, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{analysisSvc: analysisSvc}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: allowedHeaders,
		MaxAge:         86400,
	}))
	// Browser preflights are answered by cors above; any other OPTIONS ends here.
	mux.Use(preflight)

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/healthz", middleware.HealthHandler(checkers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Method(http.MethodGet, "/metrics", metrics.Handler())

	mux.Post("/analyze", r.wrap(r.handleAnalyze))
	mux.Get("/analyses", r.wrap(r.handleHistory))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, req, err)
		}
	}
}

func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
		w.WriteHeader(http.StatusNoContent)
	})
}

// POST /analyze
// Body: {"inputType": "text"|"image", "content": "<text or image url>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body report.AnalysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after request object", errInvalidBody)
	}

	res, err := r.analysisSvc.Analyze(req.Context(), body)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /analyses?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analysisSvc.History(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}
