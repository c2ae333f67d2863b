package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/atlas/internal/guard"
	"github.com/MikeSquared-Agency/atlas/internal/item"
	"github.com/MikeSquared-Agency/atlas/internal/processor"
	"github.com/MikeSquared-Agency/atlas/internal/profile"
	"github.com/MikeSquared-Agency/atlas/internal/store"
)

type Server struct {
	router    *chi.Mux
	port      int
	store     store.Store
	processor *processor.Processor
	guard     *guard.Guard
	mapper    *profile.Mapper
	logger    *slog.Logger
}

func NewServer(port int, apiToken string, db store.Store, proc *processor.Processor, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		store:     db,
		processor: proc,
		guard:     guard.New(db, logger),
		mapper:    profile.NewMapper(logger),
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/atlas/status", s.status)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/sessions/{sessionID}/items", s.listItems)
		r.Get("/sessions/{sessionID}/profile", s.sessionProfile)
		r.Post("/sessions/{sessionID}/review", s.reviewBatch)
		r.Post("/items/{itemID}/review", s.reviewItem)
		r.Put("/profiles/{profileID}", s.putProfile)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// BearerAuthMiddleware rejects requests without the configured bearer token.
// An empty configured token disables auth (local dev).
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got != token {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "atlas",
		"status": "active",
	})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var (
		items []item.ExtractedItem
		err   error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := item.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
			return
		}
		items, err = s.store.FindByStatus(r.Context(), sessionID, status)
	} else {
		items, err = s.store.FindBySession(r.Context(), sessionID)
	}
	if err != nil {
		s.logger.Error("list items failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"count":      len(items),
		"items":      items,
	})
}

type reviewRequest struct {
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
	Notes      string `json:"notes"`
}

func (s *Server) reviewItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	status, ok := item.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	reviewed, err := s.processor.ApplyReview(r.Context(), id, status, req.ReviewedBy, req.Notes)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
		return
	case errors.Is(err, processor.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("review failed", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "review failed")
		return
	}

	writeJSON(w, http.StatusOK, reviewed)
}

type batchReviewRequest struct {
	ReviewedBy string `json:"reviewed_by"`
	Decisions  []struct {
		ItemID string `json:"item_id"`
		Status string `json:"status"`
		Notes  string `json:"notes"`
	} `json:"decisions"`
}

type batchOutcome struct {
	ItemID string `json:"item_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) reviewBatch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req batchReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(req.Decisions) == 0 {
		writeError(w, http.StatusBadRequest, "no decisions")
		return
	}

	decisions := make([]processor.ReviewDecision, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		id, err := uuid.Parse(d.ItemID)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item id %q", d.ItemID))
			return
		}
		status, ok := item.ParseStatus(d.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", d.Status))
			return
		}
		decisions = append(decisions, processor.ReviewDecision{ItemID: id, Status: status, Notes: d.Notes})
	}

	outcomes := s.processor.ApplyReviewBatch(r.Context(), decisions, req.ReviewedBy)

	results := make([]batchOutcome, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		res := batchOutcome{ItemID: o.ItemID.String(), OK: o.Error == nil}
		if o.Error != nil {
			res.Error = o.Error.Error()
			failed++
		}
		results = append(results, res)
	}

	// 207 when some decisions failed: the batch has no atomicity and the
	// caller needs the per-item picture.
	code := http.StatusOK
	if failed > 0 {
		code = http.StatusMultiStatus
	}
	writeJSON(w, code, map[string]any{
		"session_id": sessionID,
		"applied":    len(results) - failed,
		"failed":     failed,
		"results":    results,
	})
}

func (s *Server) sessionProfile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	items, err := s.store.FindByStatus(r.Context(), sessionID, item.StatusApproved)
	if err != nil {
		s.logger.Error("profile projection failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"item_count": len(items),
		"profile":    s.mapper.MapItemsToProfile(items),
	})
}

type putProfileRequest struct {
	LastSeenVersion string         `json:"last_seen_version"`
	Profile         profile.Update `json:"profile"`
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var req putProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	doc, _, err := s.store.Read(r.Context(), profileID)
	if errors.Is(err, store.ErrNotFound) {
		// A version token implies the caller saw a record that is gone.
		if req.LastSeenVersion != "" {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		created := profile.MergeProfiles(profile.NewProfile(), req.Profile)
		payload, merr := json.Marshal(created)
		if merr != nil {
			writeError(w, http.StatusInternalServerError, "encode profile")
			return
		}
		version, cerr := s.store.Create(r.Context(), profileID, payload)
		switch {
		case errors.Is(cerr, store.ErrAlreadyExists):
			// Lost a create race: another no-token writer landed between
			// the read and the insert. The record exists now, so merge
			// against it like any other update.
			doc, _, err = s.store.Read(r.Context(), profileID)
			if err != nil {
				s.logger.Error("profile read failed", "profile_id", profileID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to load profile")
				return
			}
		case cerr != nil:
			s.logger.Error("profile create failed", "profile_id", profileID, "error", cerr)
			writeError(w, http.StatusInternalServerError, "failed to save profile")
			return
		default:
			writeJSON(w, http.StatusCreated, map[string]any{
				"profile_id": profileID,
				"version":    version,
				"profile":    created,
			})
			return
		}
	} else if err != nil {
		s.logger.Error("profile read failed", "profile_id", profileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	existing := profile.NewProfile()
	if err := json.Unmarshal(doc, &existing); err != nil {
		s.logger.Error("stored profile unreadable", "profile_id", profileID, "error", err)
		writeError(w, http.StatusInternalServerError, "stored profile unreadable")
		return
	}

	merged := profile.MergeProfiles(existing, req.Profile)
	payload, err := json.Marshal(merged)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode profile")
		return
	}

	version, err := s.guard.Apply(r.Context(), profileID, req.LastSeenVersion, payload)
	switch {
	case errors.Is(err, guard.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, guard.ErrNotFound):
		writeError(w, http.StatusNotFound, "profile not found")
		return
	case err != nil:
		s.logger.Error("profile write failed", "profile_id", profileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile_id": profileID,
		"version":    version,
		"profile":    merged,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
