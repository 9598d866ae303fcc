package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/marais/streetrisk/internal/geo"
	"github.com/marais/streetrisk/internal/metrics"
	"github.com/marais/streetrisk/internal/model"
	"github.com/marais/streetrisk/internal/models"
)

const defaultHotspotRadiusKM = 2.0

type riskRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req riskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	fast := s.fastByDefault
	if v := r.URL.Query().Get("fast"); v != "" {
		fast = v == "1" || v == "true"
	}

	assessment, err := s.assessor.Assess(r.Context(), req.Latitude, req.Longitude, fast)
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, model.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "risk model not loaded")
		return
	case err != nil:
		log.Printf("api: assess (%v, %v): %v", req.Latitude, req.Longitude, err)
		writeError(w, http.StatusInternalServerError, "assessment failed")
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "lat and lon query parameters required")
		return
	}
	if err := geo.Validate(lat, lon); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	radiusKM := defaultHotspotRadiusKM
	if v := r.URL.Query().Get("radius_km"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radiusKM = parsed
	}

	hotspots, err := s.store.HotspotsWithin(r.Context(), lat, lon, radiusKM*1000)
	if err != nil {
		log.Printf("api: hotspots: %v", err)
		writeError(w, http.StatusInternalServerError, "hotspot query failed")
		return
	}
	if hotspots == nil {
		hotspots = []models.Hotspot{}
	}
	writeJSON(w, http.StatusOK, hotspots)
}

type ingestCrimeRequest struct {
	State     string  `json:"state"`
	District  string  `json:"district"`
	Year      int     `json:"year"`
	CrimeType string  `json:"crime_type"`
	Count     float64 `json:"count"`
	Day       string  `json:"day"`
	HourOfDay int     `json:"hour_of_day"`
	Minute    int     `json:"minute"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Street    string  `json:"street_name"`
}

func (s *Server) handleIngestCrime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	var req ingestCrimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := geo.Validate(req.Latitude, req.Longitude); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CrimeType == "" {
		writeError(w, http.StatusBadRequest, "crime_type required")
		return
	}

	ev := models.CrimeEvent{
		State:     req.State,
		District:  req.District,
		Year:      req.Year,
		CrimeType: req.CrimeType,
		Count:     req.Count,
		Day:       req.Day,
		HourOfDay: req.HourOfDay,
		Minute:    req.Minute,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if req.Street != "" {
		ev.StreetName.String = req.Street
		ev.StreetName.Valid = true
	}

	if err := s.store.InsertCrimeEvent(r.Context(), ev); err != nil {
		log.Printf("api: ingest crime: %v", err)
		writeError(w, http.StatusInternalServerError, "insert failed")
		return
	}
	metrics.CrimeEventsIngested.Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (s *Server) handleModelReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	artifact, err := model.Load(s.modelPath)
	if err != nil {
		log.Printf("api: model reload: %v", err)
		writeError(w, http.StatusInternalServerError, "model reload failed")
		return
	}
	s.modelRef.Swap(artifact)
	log.Printf("api: model reloaded from %s (trained %s)", s.modelPath, artifact.TrainedAt)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "reloaded",
		"trained_at": artifact.TrainedAt,
	})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	if s.briefingGen == nil {
		writeError(w, http.StatusNotImplemented, "briefings disabled: no OpenAI credentials")
		return
	}

	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "lat and lon query parameters required")
		return
	}

	assessment, err := s.assessor.Assess(r.Context(), lat, lon, false)
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, model.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "risk model not loaded")
		return
	case err != nil:
		log.Printf("api: briefing assess: %v", err)
		writeError(w, http.StatusInternalServerError, "assessment failed")
		return
	}

	type briefingResponse struct {
		Cell      string `json:"h3_index"`
		RiskLevel string `json:"risk_level"`
		Briefing  string `json:"briefing"`
		Cached    bool   `json:"cached"`
	}

	if text, ok := s.briefingCache.Get(assessment.Cell, assessment.RiskLevel); ok {
		writeJSON(w, http.StatusOK, briefingResponse{
			Cell: assessment.Cell, RiskLevel: assessment.RiskLevel, Briefing: text, Cached: true,
		})
		return
	}

	text, err := s.briefingGen.Generate(r.Context(), *assessment)
	if err != nil {
		log.Printf("api: briefing generate: %v", err)
		writeError(w, http.StatusBadGateway, "briefing generation failed")
		return
	}
	if err := s.briefingCache.Set(assessment.Cell, assessment.RiskLevel, text); err != nil {
		log.Printf("api: briefing cache: %v", err)
	}
	writeJSON(w, http.StatusOK, briefingResponse{
		Cell: assessment.Cell, RiskLevel: assessment.RiskLevel, Briefing: text,
	})
}

type healthStatus struct {
	Status        string `json:"status"`
	ModelLoaded   bool   `json:"model_loaded"`
	CrimeEvents   int    `json:"crime_events"`
	NewestArticle string `json:"newest_article,omitempty"`
	ArticlesStale bool   `json:"articles_stale"`
	Errors        []string `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := healthStatus{Status: "ok", ModelLoaded: s.modelRef.Loaded()}

	if err := s.store.Ping(r.Context()); err != nil {
		health.Status = "error"
		health.Errors = append(health.Errors, "db: "+err.Error())
		writeJSON(w, http.StatusInternalServerError, health)
		return
	}

	if n, err := s.store.CountCrimeEvents(r.Context()); err == nil {
		health.CrimeEvents = n
	} else {
		health.Errors = append(health.Errors, "crimes: "+err.Error())
	}

	staleThreshold := 24 * time.Hour
	if newest, err := s.store.LatestArticleTime(r.Context()); err == nil && !newest.IsZero() {
		health.NewestArticle = newest.Format(time.RFC3339)
		health.ArticlesStale = time.Since(newest) > staleThreshold
	} else {
		health.ArticlesStale = true
	}

	if !health.ModelLoaded {
		health.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, health)
}
