package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"lockstep/internal/roster"
	"lockstep/pkg/interfaces"
	"lockstep/pkg/types"
)

// LiveDirectory is what the API needs from the live session directory:
// participant counts for session detail and counters for health.
type LiveDirectory interface {
	Participants(sessionID string) int
	Stats() map[string]int
}

// ConnectionRegistry exposes connection counters for health reporting.
type ConnectionRegistry interface {
	Stats() map[string]int
}

// Server is the HTTP surface for roster scheduling and health. No business
// logic lives here, only HTTP handling and JSON serialization.
type Server struct {
	rosterManager interfaces.RosterManager
	store         interfaces.SessionStore
	directory     LiveDirectory
	registry      ConnectionRegistry
	router        *http.ServeMux
}

// NewServer creates the API server and sets up its routes.
func NewServer(rosterManager interfaces.RosterManager, store interfaces.SessionStore, directory LiveDirectory, registry ConnectionRegistry) *Server {
	s := &Server{
		rosterManager: rosterManager,
		store:         store,
		directory:     directory,
		registry:      registry,
		router:        http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/sessions", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleSessions))))
	s.router.Handle("/api/sessions/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleSessionByID))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSession(w, r)
	case http.MethodGet:
		s.listSessions(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID := strings.Split(path, "/")[0]
	if sessionID == "" {
		s.sendError(w, "Session ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getSession(w, r, sessionID)
	case http.MethodDelete:
		s.endSession(w, r, sessionID)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request/response shapes for JSON serialization.

type CreateSessionRequest struct {
	Name       string   `json:"name"`
	TeacherID  string   `json:"teacher_id"`
	StudentIDs []string `json:"student_ids"`
}

type SessionResponse struct {
	Session          *types.ScheduledSession `json:"session"`
	LiveParticipants int                     `json:"live_participants"`
}

type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
	Live        map[string]int `json:"live"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	session, err := s.rosterManager.CreateSession(r.Context(), req.Name, req.TeacherID, req.StudentIDs)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidSessionName),
			errors.Is(err, types.ErrInvalidTeacherID),
			errors.Is(err, types.ErrEmptyStudentList),
			errors.Is(err, types.ErrInvalidUserID):
			s.sendError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Session creation failed: %v", err)
			s.sendError(w, "Failed to create session", http.StatusInternalServerError)
		}
		return
	}

	s.sendJSON(w, SessionResponse{Session: session}, http.StatusCreated)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.rosterManager.ListActiveSessions(r.Context())
	if err != nil {
		log.Printf("Session listing failed: %v", err)
		s.sendError(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	resp := ListSessionsResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, SessionResponse{
			Session:          session,
			LiveParticipants: s.directory.Participants(session.ID),
		})
	}

	s.sendJSON(w, resp, http.StatusOK)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.rosterManager.GetSession(r.Context(), sessionID)
	if err != nil {
		s.sendError(w, "Session not found", http.StatusNotFound)
		return
	}

	s.sendJSON(w, SessionResponse{
		Session:          session,
		LiveParticipants: s.directory.Participants(sessionID),
	}, http.StatusOK)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	err := s.rosterManager.EndSession(r.Context(), sessionID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, roster.ErrSessionNotFound):
		s.sendError(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, roster.ErrSessionAlreadyEnded):
		s.sendError(w, "Session already ended", http.StatusConflict)
	default:
		log.Printf("Session end failed: id=%s err=%v", sessionID, err)
		s.sendError(w, "Failed to end session", http.StatusInternalServerError)
	}
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now(),
		Database:    "ok",
		Connections: s.registry.Stats(),
		Live:        s.directory.Stats(),
	}

	status := http.StatusOK
	if err := s.store.HealthCheck(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}

	s.sendJSON(w, resp, status)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, v interface{}, status int) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, ErrorResponse{Error: message, Code: code}, code)
}
