// Package server exposes the treaty store and search engine over a JSON
// HTTP API. It serves data only; rendering is the consumer's concern.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/coolbeans/treatysearch/pkg/extract"
	"github.com/coolbeans/treatysearch/pkg/ingest"
	"github.com/coolbeans/treatysearch/pkg/search"
	"github.com/coolbeans/treatysearch/pkg/store"
	"github.com/coolbeans/treatysearch/pkg/treaty"
)

// Server wires the store, search engine, and ingester behind HTTP handlers.
type Server struct {
	store    *store.Store
	engine   *search.Engine
	ingester *ingest.Ingester
	metrics  *Metrics
	log      zerolog.Logger
}

// New creates a Server over the given store.
func New(st *store.Store, log zerolog.Logger) *Server {
	return &Server{
		store:    st,
		engine:   search.NewEngine(st),
		ingester: ingest.New(st, log),
		metrics:  NewMetrics(),
		log:      log.With().Str("component", "server").Logger(),
	}
}

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/countries", s.handleCountries)
		r.Get("/stats", s.handleStats)
		r.Get("/treaties/{country}", s.handleGetTreaty)
		r.Delete("/treaties/{country}", s.handleDeleteTreaty)
		r.Post("/treaties", s.handleIngest)
	})

	return r
}

// ListenAndServe starts the API server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info().Str("addr", addr).Msg("API server listening")

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return httpServer.ListenAndServe()
}

// observe records request metrics and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if ctx := chi.RouteContext(r.Context()); ctx != nil && ctx.RoutePattern() != "" {
			route = ctx.RoutePattern()
		}
		duration := time.Since(start)

		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())

		s.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// searchResponse is the envelope for /api/search.
type searchResponse struct {
	Query        string          `json:"query"`
	TotalResults int             `json:"total_results"`
	Results      []search.Result `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	opts := search.DefaultOptions()
	if raw := r.URL.Query().Get("countries"); raw != "" {
		for _, country := range strings.Split(raw, ",") {
			if country = strings.TrimSpace(country); country != "" {
				opts.Countries = append(opts.Countries, country)
			}
		}
	}
	if raw := r.URL.Query().Get("articles"); raw != "" {
		opts.InArticles = raw == "true" || raw == "1"
	}
	if raw := r.URL.Query().Get("full_text"); raw != "" {
		opts.InFullText = raw == "true" || raw == "1"
	}

	results := s.engine.Search(keyword, opts)

	s.metrics.SearchesTotal.Inc()
	s.metrics.SearchResultsTotal.Add(float64(len(results)))

	writeJSON(w, http.StatusOK, searchResponse{
		Query:        keyword,
		TotalResults: len(results),
		Results:      results,
	})
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"countries": s.store.ListCountries()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleGetTreaty(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	record, ok := s.store.Load(country)
	if !ok {
		writeError(w, http.StatusNotFound, "no treaty stored for "+country)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteTreaty(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	if !s.store.Delete(country) {
		writeError(w, http.StatusNotFound, "no treaty stored for "+country)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ingestRequest is the payload for /api/treaties. Pages carry text already
// extracted by the upstream collaborator.
type ingestRequest struct {
	Country    string        `json:"country"`
	Filename   string        `json:"filename"`
	SourcePath string        `json:"source_path"`
	Pages      []treaty.Page `json:"pages"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}

	record, err := s.ingester.IngestOne(ingest.Item{
		Country:    req.Country,
		Filename:   req.Filename,
		SourcePath: req.SourcePath,
		Pages:      req.Pages,
	})
	if err != nil {
		s.metrics.IngestsTotal.WithLabelValues("failed").Inc()

		var extractionErr *extract.ExtractionError
		if errors.As(err, &extractionErr) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.IngestsTotal.WithLabelValues("ingested").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"country":     record.Country,
		"total_pages": record.TotalPages,
		"articles":    len(record.Articles),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
