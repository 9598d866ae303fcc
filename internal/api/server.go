package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marais/streetrisk/internal/briefing"
	"github.com/marais/streetrisk/internal/model"
	"github.com/marais/streetrisk/internal/risk"
	"github.com/marais/streetrisk/internal/store"
)

// Assessor is the scoring entry point; satisfied by *risk.Aggregator.
type Assessor interface {
	Assess(ctx context.Context, lat, lon float64, fast bool) (*risk.Assessment, error)
}

type Server struct {
	store         *store.Store
	assessor      Assessor
	modelRef      *model.Ref
	modelPath     string
	port          string
	apiKey        string
	fastByDefault bool
	briefingGen   *briefing.Generator
	briefingCache *briefing.Cache
}

type Config struct {
	Port          string
	APIKey        string // shared secret for the write endpoints
	ModelPath     string
	FastByDefault bool
	BriefingDir   string
}

func NewServer(st *store.Store, assessor Assessor, ref *model.Ref, cfg Config) *Server {
	// Briefings are optional - may not have API key
	var gen *briefing.Generator
	if g, err := briefing.NewGenerator(); err != nil {
		log.Printf("Briefing generation disabled: %v", err)
	} else {
		gen = g
	}

	dir := cfg.BriefingDir
	if dir == "" {
		dir = "data/briefings"
	}

	return &Server{
		store:         st,
		assessor:      assessor,
		modelRef:      ref,
		modelPath:     cfg.ModelPath,
		port:          cfg.Port,
		apiKey:        cfg.APIKey,
		fastByDefault: cfg.FastByDefault,
		briefingGen:   gen,
		briefingCache: briefing.NewCache(dir),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	mux.HandleFunc("/api/risk", s.handleRisk)
	mux.HandleFunc("/api/hotspots", s.handleHotspots)
	mux.HandleFunc("/api/crimes", s.handleIngestCrime)
	mux.HandleFunc("/api/model/reload", s.handleModelReload)
	mux.HandleFunc("/api/briefing", s.handleBriefing)
	return corsMiddleware(mux)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// corsMiddleware allows the map frontend, served from a different origin,
// to call the API directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorized checks the shared-secret header on write endpoints.
func (s *Server) authorized(r *http.Request) bool {
	return s.apiKey != "" && r.Header.Get("X-API-Key") == s.apiKey
}
