package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gapradar/gapradar/internal/cache"
	"github.com/gapradar/gapradar/internal/store"
	"github.com/gapradar/gapradar/pkg/radar"
	"github.com/gapradar/gapradar/pkg/source"
)

// Server provides the HTTP API.
type Server struct {
	store   store.Store
	engine  *radar.Engine
	sources []source.Source
	cache   *cache.Cache
	port    int
}

// New creates a new HTTP server. The cache is injected so callers choose
// the caching policy; pass nil to disable response caching.
func New(s store.Store, engine *radar.Engine, sources []source.Source, respCache *cache.Cache, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:   s,
		engine:  engine,
		sources: sources,
		cache:   respCache,
		port:    port,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/opportunities", s.handleOpportunities)
	mux.HandleFunc("/api/v1/records", s.handleRecords)
	mux.HandleFunc("/api/v1/sources", s.handleSources)
	mux.HandleFunc("/api/v1/collect", s.handleCollect)
	mux.HandleFunc("/api/v1/score", s.handleScore)

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("gapradar server listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	fetch := func() (any, error) {
		return s.store.ListOpportunities(r.Context(), store.OpportunityListOpts{
			MinScore: 0,
			Limit:    50,
		})
	}

	var result any
	var err error
	if s.cache != nil {
		result, err = s.cache.GetOrCompute("opportunities", fetch)
	} else {
		result, err = fetch()
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	opportunities := result.([]store.Opportunity)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  opportunities,
		"count": len(opportunities),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opts := store.ListOpts{Limit: 100}
	if niche := r.URL.Query().Get("niche"); niche != "" {
		opts.Niche = niche
	}
	if src := r.URL.Query().Get("source"); src != "" {
		opts.Source = source.SourceType(src)
	}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		opts.Kind = source.Kind(kind)
	}
	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			opts.Since = t
		}
	}

	records, err := s.store.ListRecords(r.Context(), opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"count": len(records),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	counts, err := s.store.CountRecordsBySource(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type sourceInfo struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
		Records int    `json:"records"`
	}

	var infos []sourceInfo
	for _, src := range s.sources {
		infos = append(infos, sourceInfo{
			Name:    string(src.Name()),
			Enabled: true,
			Records: counts[src.Name()],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  infos,
		"count": len(infos),
	})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ctx := r.Context()
	results := make(map[string]int)
	var errs []string

	for _, src := range s.sources {
		records, err := src.Collect(ctx)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", src.Name(), err))
			continue
		}
		if err := s.store.UpsertRecords(ctx, records); err != nil {
			errs = append(errs, fmt.Sprintf("%s store: %v", src.Name(), err))
			continue
		}
		results[string(src.Name())] = len(records)
	}

	resp := map[string]any{"collected": results}
	if len(errs) > 0 {
		resp["errors"] = errs
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opportunities, err := s.engine.Scan(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// Fresh scores invalidate the cached listing.
	if s.cache != nil {
		s.cache.Delete("opportunities")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  opportunities,
		"count": len(opportunities),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
