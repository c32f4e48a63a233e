// Package api exposes the photo board, the Plaud webhook and the RAPA/GTD
// endpoints consumed by the Avatar dashboard.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/models"
	"github.com/xaenox/collect-bot/internal/rapa"
	"github.com/xaenox/collect-bot/internal/storage"
	"github.com/xaenox/collect-bot/internal/telegram"
)

type Server struct {
	store    storage.Storage
	triage   *rapa.Service
	reviewer *rapa.Reviewer
	files    *telegram.FileClient
	owner    int64
	logger   *zap.Logger
}

func NewServer(store storage.Storage, triage *rapa.Service, reviewer *rapa.Reviewer, files *telegram.FileClient, owner int64, logger *zap.Logger) *Server {
	return &Server{
		store:    store,
		triage:   triage,
		reviewer: reviewer,
		files:    files,
		owner:    owner,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	r.HandleFunc("/api/collect/entries", s.handleEntries).Methods(http.MethodGet)
	r.HandleFunc("/api/plaud/webhook", s.handlePlaudWebhook).Methods(http.MethodPost)
	r.HandleFunc("/api/rapa/review", s.handleReview).Methods(http.MethodGet)
	r.HandleFunc("/api/rapa/raw", s.handleRawList).Methods(http.MethodGet)
	r.HandleFunc("/api/rapa/projects", s.handleProjects).Methods(http.MethodGet)
	r.HandleFunc("/api/rapa/areas", s.handleAreas).Methods(http.MethodGet)
	r.HandleFunc("/api/rapa/goals", s.handleGoals).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/photo/{id:[0-9]+}", s.handlePhoto).Methods(http.MethodGet)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// requireOwner rejects requests when no owner identity is configured.
func (s *Server) requireOwner(w http.ResponseWriter) bool {
	if s.owner == 0 {
		s.writeError(w, http.StatusBadRequest, "owner_user_id not set")
		return false
	}
	return true
}

// --- Photo board ---

type entryResponse struct {
	ID          int64   `json:"id"`
	Comment     *string `json:"comment"`
	CreatedAt   string  `json:"created_at"`
	PhotoFileID string  `json:"photo_file_id"`
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.PublishedEntries(r.Context())
	if err != nil {
		s.logger.Error("Failed to list published entries", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	response := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		item := entryResponse{
			ID:          e.ID,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
			PhotoFileID: e.PhotoFileID,
		}
		if comment := strings.TrimSpace(e.Comment); comment != "" {
			item.Comment = &comment
		}
		response = append(response, item)
	}
	s.writeJSON(w, http.StatusOK, response)
}

// --- Plaud webhook ---

func pickField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func (s *Server) handlePlaudWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.requireOwner(w) {
		return
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		data = nil
	}

	transcript := pickField(data, "transcript", "Transcript")
	summary := pickField(data, "summary", "Summary")

	content := transcript
	if content == "" {
		content = summary
	}
	if content == "" {
		s.writeError(w, http.StatusBadRequest, "transcript or summary required")
		return
	}
	if summary != "" && transcript != "" && summary != transcript {
		content = summary + "\n\n---\n" + transcript
	}

	metadata := make(map[string]string)
	for key, value := range data {
		switch key {
		case "transcript", "summary", "title", "Transcript", "Summary", "Title":
			continue
		}
		metadata[key] = fmt.Sprint(value)
	}

	note, err := s.triage.Ingest(r.Context(), rapa.IngestRequest{
		UserID:   s.owner,
		Content:  content,
		Source:   "Plaud",
		Metadata: metadata,
		Tags:     []string{"plaud"},
	})
	if err != nil {
		s.logger.Error("Failed to ingest transcript", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "raw_id": note.ID})
}

// --- RAPA reviews ---

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if !s.requireOwner(w) {
		return
	}

	period := strings.ToLower(r.URL.Query().Get("period"))
	var (
		text string
		err  error
	)
	switch period {
	case "week", "weekly":
		period = "weekly"
		text, err = s.reviewer.Weekly(r.Context(), s.owner)
	case "month", "monthly":
		period = "monthly"
		text, err = s.reviewer.Monthly(r.Context(), s.owner)
	default:
		period = "daily"
		text, err = s.reviewer.Daily(r.Context(), s.owner)
	}
	if err != nil {
		s.logger.Error("Failed to build review", zap.Error(err), zap.String("period", period))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"period": period, "review": text})
}

func (s *Server) handleRawList(w http.ResponseWriter, r *http.Request) {
	if !s.requireOwner(w) {
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			days = parsed
		}
	}
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	notes, err := s.store.ListNotesSince(r.Context(), s.owner, since)
	if err != nil {
		s.logger.Error("Failed to list raw notes", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"raw": notes, "days": days})
}

// --- GTD dashboard ---

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if !s.requireOwner(w) {
		return
	}

	projects, err := s.store.ListProjects(r.Context(), s.owner)
	if err != nil {
		s.logger.Error("Failed to list projects", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	if !s.requireOwner(w) {
		return
	}

	areas, err := s.store.ListAreas(r.Context(), s.owner)
	if err != nil {
		s.logger.Error("Failed to list areas", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if areas == nil {
		areas = []*models.Area{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

type createGoalRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AreaID      *int64 `json:"area_id"`
	Year        int    `json:"year"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	if !s.requireOwner(w) {
		return
	}

	if r.Method == http.MethodPost {
		var req createGoalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			s.writeError(w, http.StatusBadRequest, "name required")
			return
		}
		if req.Year == 0 {
			req.Year = time.Now().Year()
		}

		goal := &models.Goal{
			UserID:      s.owner,
			Year:        req.Year,
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			AreaID:      req.AreaID,
		}
		if err := s.store.CreateGoal(r.Context(), goal); err != nil {
			s.logger.Error("Failed to create goal", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "storage error")
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "id": goal.ID, "year": goal.Year})
		return
	}

	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			year = parsed
		}
	}

	goals, err := s.store.ListGoals(r.Context(), s.owner, year)
	if err != nil {
		s.logger.Error("Failed to list goals", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if goals == nil {
		goals = []*models.Goal{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"goals": goals, "year": year})
}

// --- Photo proxy ---

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	entry, err := s.store.GetPublishedEntry(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) || s.files == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Failed to load entry", zap.Error(err), zap.Int64("entry_id", id))
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	filePath, err := s.files.FilePath(r.Context(), entry.PhotoFileID)
	if err != nil {
		s.logger.Error("Failed to resolve photo path", zap.Error(err), zap.Int64("entry_id", id))
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	data, err := s.files.Download(r.Context(), filePath)
	if err != nil {
		s.logger.Error("Failed to fetch photo", zap.Error(err), zap.Int64("entry_id", id))
		http.Error(w, "Failed to fetch", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", telegram.ContentType(filePath))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
