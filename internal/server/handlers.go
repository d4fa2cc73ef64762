package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/keyword"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/ranking"
	"github.com/hyperjump/matchfeed/internal/storage"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	// multipartOverhead is the allowance for form fields next to the resume file.
	multipartOverhead = 1 << 20
)

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	pageSize, set, err := intParam(r, "page_size")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if set && pageSize < 1 {
		s.respondError(w, http.StatusBadRequest, "page_size must be at least 1")
		return
	}
	cursor := r.URL.Query().Get("cursor")
	s.logger.Debug("discover request", zap.String("user_id", userID), zap.Int("page_size", pageSize), zap.Bool("cursor", cursor != ""))
	resp, err := s.Discovery.Discover(r.Context(), userID, pageSize, cursor, s.now())
	if err != nil {
		s.respondErr(w, "discover", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var input models.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.Profiles.Create(r.Context(), &input)
	if err != nil {
		s.respondErr(w, "create user", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, u)
}

// handleCreateUserFromResume accepts a multipart form with a "resume" file and optional
// id, headline, skills, preferred_locations (comma separated) and seniority fields.
func (s *Server) handleCreateUserFromResume(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.Profiles.MaxResumeBytes())
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("resume")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "resume file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read resume")
		return
	}

	input := models.UserInput{
		ID:                 r.FormValue("id"),
		Headline:           r.FormValue("headline"),
		Skills:             splitList(r.FormValue("skills")),
		PreferredLocations: splitList(r.FormValue("preferred_locations")),
		Seniority:          r.FormValue("seniority"),
	}
	s.logger.Debug("resume upload", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))
	u, err := s.Profiles.CreateFromResume(r.Context(), &input, content, filepath.Ext(header.Filename))
	if err != nil {
		s.respondErr(w, "create user from resume", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.Profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get user", err)
		return
	}
	s.respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	res, err := s.Evolution.Recompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "evolve", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.Store.GetUser(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "explain", err)
		return
	}
	item, err := s.Store.GetItem(ctx, chi.URLParam(r, "itemID"))
	if err != nil {
		s.respondErr(w, "explain", err)
		return
	}
	now := s.now()
	ws := s.Scorer.Weights()
	b := s.Scorer.ScoreWith(ws, u, item, now)
	s.respondJSON(w, http.StatusOK, ranking.Explain(ws, b, u, item, now))
}

type swipeRequest struct {
	UserID   string `json:"user_id"`
	ItemID   string `json:"item_id"`
	Decision string `json:"decision"`
}

type swipeResponse struct {
	UserID          string          `json:"user_id"`
	ItemID          string          `json:"item_id"`
	Decision        models.Decision `json:"decision"`
	AcceptedCount   int             `json:"accepted_count"`
	EvolutionQueued bool            `json:"evolution_queued"`
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ItemID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id and item_id are required")
		return
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		s.respondErr(w, "swipe", err)
		return
	}
	accepted, err := s.Store.RecordInteraction(r.Context(), &models.Interaction{
		UserID:   req.UserID,
		ItemID:   req.ItemID,
		Decision: decision,
	})
	if err != nil {
		s.respondErr(w, "swipe", err)
		return
	}
	s.Metrics.IncSwipe(string(decision))

	resp := swipeResponse{UserID: req.UserID, ItemID: req.ItemID, Decision: decision, AcceptedCount: accepted}
	if decision == models.DecisionAccept && s.Dispatcher != nil {
		// The swipe stays recorded; the next due accept or an explicit evolve catches up.
		if err := s.Dispatcher.Submit(req.UserID, req.ItemID, accepted); err != nil {
			s.logger.Warn("evolution not queued", zap.String("user_id", req.UserID), zap.Error(err))
		} else {
			resp.EvolutionQueued = true
		}
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.Catalog.Create(r.Context(), &input)
	if err != nil {
		s.respondErr(w, "create item", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get item", err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.Catalog.Update(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		s.respondErr(w, "update item", err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeactivateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Catalog.Deactivate(r.Context(), id); err != nil {
		s.respondErr(w, "deactivate item", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deactivated"})
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, set, err := intParam(r, "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !set {
		limit = defaultSearchLimit
	} else if limit < 1 {
		s.respondError(w, http.StatusBadRequest, "limit must be at least 1")
		return
	}
	limit = min(limit, maxSearchLimit)
	opts := &keyword.SearchOptions{TitleBoost: 2, FuzzyEnabled: q.Get("fuzzy") != "false", Fuzziness: 1}
	res, err := s.Catalog.Search(r.Context(), q.Get("q"), limit, opts)
	if err != nil {
		s.respondErr(w, "search items", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activeItems, err := s.Store.CountItems(ctx, true)
	if err != nil {
		s.respondErr(w, "status", err)
		return
	}
	items, err := s.Store.CountItems(ctx, false)
	if err != nil {
		s.respondErr(w, "status", err)
		return
	}
	users, err := s.Store.CountUsers(ctx)
	if err != nil {
		s.respondErr(w, "status", err)
		return
	}
	interactions, err := s.Store.CountInteractions(ctx)
	if err != nil {
		s.respondErr(w, "status", err)
		return
	}
	resp := map[string]interface{}{
		"items":             items,
		"active_items":      activeItems,
		"users":             users,
		"interactions":      interactions,
		"vector_index_size": s.Vectors.Size(),
	}

	configInfo := map[string]interface{}{
		"vector_index_type":    s.Vectors.Type(),
		"weight_set":           s.Scorer.Weights().Name,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"database_path":        s.config.Storage.DatabasePath,
		"bleve_index_path":     s.config.Storage.BleveIndexPath,
	}
	paths := []string{s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath}
	if s.Vectors.Type() == "memory" {
		configInfo["vector_index_path"] = s.config.Vector.IndexPath
		paths = append(paths, s.config.Vector.IndexPath)
	}
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps an error to the HTTP status of its sentinel class.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) respondErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// intParam parses an optional integer query parameter and reports whether it was given.
func intParam(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be an integer", name)
	}
	return n, true, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
