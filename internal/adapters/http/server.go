package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
	"procwatch/internal/services/analyzer"
)

// Server exposes the analyzer over HTTP for serve mode. The CLI is the
// primary surface; this covers dashboards and ad-hoc triggering.
type Server struct {
	analyzer ports.Analyzer
	reviews  ports.ReviewRepository
	log      *zap.Logger
	metrics  http.Handler
}

func New(a ports.Analyzer, reviews ports.ReviewRepository, log *zap.Logger, metrics http.Handler) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{analyzer: a, reviews: reviews, log: log, metrics: metrics}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/tenders/{id}/risk", s.handleTenderRisk)
		r.Get("/flagged", s.handleFlagged)
		r.Get("/stats", s.handleStats)
		r.Post("/reviews", s.handleSaveReview)
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	report, err := s.analyzer.Run(r.Context())
	if errors.Is(err, analyzer.ErrRunInProgress) {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	if err != nil {
		s.log.Error("analyze request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTenderRisk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	score, err := s.analyzer.TenderRisk(r.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no risk score for tender "+id)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleFlagged(w http.ResponseWriter, r *http.Request) {
	minScore := 0
	if v := r.URL.Query().Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "min_score must be an integer in [0,100]")
			return
		}
		minScore = n
	}
	level := domain.RiskLevel(r.URL.Query().Get("level"))

	scores, err := s.analyzer.Flagged(r.Context(), minScore, level)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analyzer.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type reviewRequest struct {
	TenderID      string `json:"tender_id"`
	FlagType      string `json:"flag_type"`
	FalsePositive bool   `json:"false_positive"`
	Reviewer      string `json:"reviewer"`
	Note          string `json:"note"`
}

func (s *Server) handleSaveReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.TenderID == "" || req.FlagType == "" {
		writeError(w, http.StatusBadRequest, "tender_id and flag_type are required")
		return
	}
	err := s.reviews.SaveReview(r.Context(), domain.FlagReview{
		TenderID:      req.TenderID,
		Type:          domain.FlagType(req.FlagType),
		FalsePositive: req.FalsePositive,
		Reviewer:      req.Reviewer,
		Note:          req.Note,
		ReviewedAt:    time.Now().UTC(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
