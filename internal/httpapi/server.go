package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/focuslab/focusguard/internal/api"
	"github.com/focuslab/focusguard/internal/auth"
	"github.com/focuslab/focusguard/internal/repository"
	"github.com/focuslab/focusguard/internal/session"
	"github.com/focuslab/focusguard/internal/stats"
)

const defaultWindowDays = 7

type Server struct {
	authorizer auth.Authorizer
	sessions   *session.Service
	stats      *stats.Service
	hub        *Hub
}

func NewServer(authorizer auth.Authorizer, sessions *session.Service, statsService *stats.Service, hub *Hub) *Server {
	return &Server{
		authorizer: authorizer,
		sessions:   sessions,
		stats:      statsService,
		hub:        hub,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions/start", s.withAuth(s.handleStart))
	mux.HandleFunc("PATCH /api/sessions/{id}/activate", s.withAuth(s.handleActivate))
	mux.HandleFunc("POST /api/sessions/data/{id}", s.withAuth(s.handleIngest))
	mux.HandleFunc("POST /api/sessions/{id}/stop", s.withAuth(s.handleStop))
	mux.HandleFunc("GET /api/sessions/current", s.withAuth(s.handleCurrent))
	mux.HandleFunc("GET /api/sessions/live-status", s.withAuth(s.handleLiveStatus))
	mux.HandleFunc("GET /api/sessions/daily", s.withAuth(s.handleDailyFocus))
	mux.HandleFunc("GET /api/sessions/daily/apps", s.withAuth(s.handleDailyAppUsage))
	mux.HandleFunc("GET /api/sessions/history", s.withAuth(s.handleHistory))
	mux.HandleFunc("GET /api/sessions/stats", s.withAuth(s.handleLifetime))
	mux.HandleFunc("GET /api/sessions/{id}", s.withAuth(s.handleByID))
	mux.HandleFunc("GET /ws", s.handleWS)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authorize(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, api.MessageResponse{Message: "unauthorized"})
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	return s.authorizer.UserIDForToken(strings.TrimSpace(token))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, userID string) {
	created, err := s.sessions.Start(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.SessionResponse{
		Message: "Session started successfully",
		Session: toSessionPayload(created),
	})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request, userID string) {
	updated, err := s.sessions.Activate(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SessionResponse{
		Message: "Session activated successfully",
		Session: toSessionPayload(updated),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request, userID string) {
	var req api.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.MessageResponse{Message: "invalid analysis data payload"})
		return
	}
	err := s.sessions.Ingest(r.Context(), r.PathValue("id"), userID, session.IngestInput{
		Focus:    req.Focus,
		AppName:  req.AppName,
		Activity: req.Activity,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Data point processed successfully"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request, userID string) {
	stopped, err := s.sessions.Stop(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SessionResponse{
		Message: "Session stopped successfully",
		Session: toSessionPayload(stopped),
	})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request, userID string) {
	current, err := s.sessions.Current(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(current))
}

func (s *Server) handleLiveStatus(w http.ResponseWriter, r *http.Request, userID string) {
	status, err := s.sessions.LiveStatus(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityPayload(status))
}

func (s *Server) handleDailyFocus(w http.ResponseWriter, r *http.Request, userID string) {
	daily, err := s.stats.DailyFocus(r.Context(), userID, windowDays(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

func (s *Server) handleDailyAppUsage(w http.ResponseWriter, r *http.Request, userID string) {
	usage, err := s.stats.DailyAppUsage(r.Context(), userID, windowDays(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := s.sessions.History(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payloads := make([]api.SessionPayload, 0, len(list))
	for i := range list {
		payloads = append(payloads, toSessionPayload(&list[i]))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleLifetime(w http.ResponseWriter, r *http.Request, userID string) {
	lifetime, err := s.sessions.Lifetime(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.LifetimeStatsPayload{
		TotalFocusTime:       lifetime.TotalFocusSeconds,
		TotalDistractionTime: lifetime.TotalDistractionSeconds,
		AppUsage:             lifetime.AppUsage,
	})
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request, userID string) {
	sess, err := s.sessions.ByID(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(sess))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, api.MessageResponse{Message: err.Error()})
	case errors.Is(err, session.ErrValidation), errors.Is(err, stats.ErrInvalidDays):
		writeJSON(w, http.StatusBadRequest, api.MessageResponse{Message: err.Error()})
	case errors.Is(err, session.ErrConflict):
		writeJSON(w, http.StatusConflict, api.MessageResponse{Message: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, api.MessageResponse{Message: "internal server error"})
	}
}

func windowDays(r *http.Request) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultWindowDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return defaultWindowDays
	}
	return days
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toSessionPayload(s *repository.Session) api.SessionPayload {
	payload := api.SessionPayload{
		ID:              s.ID,
		UserID:          s.UserID,
		StartTime:       s.StartedAt,
		EndTime:         s.EndedAt,
		FocusTime:       s.FocusSeconds,
		DistractionTime: s.DistractionSeconds,
		AppUsage:        s.AppUsage,
	}
	if s.LatestActivity != nil {
		activity := toActivityPayload(s.LatestActivity)
		payload.LatestActivity = &activity
	}
	return payload
}

func toActivityPayload(a *repository.Activity) api.ActivityPayload {
	return api.ActivityPayload{
		Service:      a.Service,
		Productivity: a.Productivity,
		Reason:       a.Reason,
		Timestamp:    a.Timestamp,
	}
}
