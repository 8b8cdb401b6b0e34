// Package web is the HTTP surface for the approval authority and for
// talking to the agent. It exposes the pending-approval queue, resolution
// endpoints, a websocket stream of audit records and a message endpoint.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/werkbote/internal/agent"
	"github.com/codefionn/werkbote/internal/audit"
	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/session"
	"github.com/codefionn/werkbote/internal/tools"
)

// Server provides the HTTP interface.
type Server struct {
	addr       string
	router     *httprouter.Router
	server     *http.Server
	dispatcher *tools.Dispatcher
	agent      *agent.Agent
	sessions   *session.Store
	hub        *Hub
	upgrader   websocket.Upgrader
}

// NewServer creates the server and subscribes the stream hub to the audit
// trail. The agent may be nil when no provider key is configured; message
// endpoints then report the service as unavailable.
func NewServer(addr string, dispatcher *tools.Dispatcher, ag *agent.Agent, sessions *session.Store, auditLog *audit.Log) *Server {
	s := &Server{
		addr:       addr,
		router:     httprouter.New(),
		dispatcher: dispatcher,
		agent:      ag,
		sessions:   sessions,
		hub:        NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	if auditLog != nil {
		auditLog.Subscribe(func(entry *audit.Entry) {
			s.hub.Broadcast(&StreamEvent{Kind: "audit", Payload: entry})
		})
	}

	s.setupRoutes()
	return s
}

// Hub returns the stream hub so other components can push events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	go s.hub.Run()

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	logger.Info("web: listening on %s", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.hub.Stop()
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/approvals", s.handleApprovalList)
	s.router.GET("/approvals/:id", s.handleApprovalGet)
	s.router.POST("/approvals/:id/approve", s.handleApprove)
	s.router.POST("/approvals/:id/reject", s.handleReject)
	s.router.POST("/messages", s.handleMessage)
	s.router.POST("/schedule", s.handleSchedule)
	s.router.GET("/stream", s.handleStream)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleApprovalList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending": s.dispatcher.Ledger().List(),
	})
}

func (s *Server) handleApprovalGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	record, ok := s.dispatcher.Ledger().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no pending approval with id %s", id))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.resolve(w, r, params.ByName("id"), true)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.resolve(w, r, params.ByName("id"), false)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, id string, approved bool) {
	result, ok := s.dispatcher.Resolve(r.Context(), id, approved)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no pending approval with id %s", id))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type messageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.agent == nil {
		writeError(w, http.StatusServiceUnavailable, "no language model configured")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sess, err := s.sessions.CreateSession("")
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sessionID = sess.ID
	}

	reply, err := s.agent.HandleMessage(r.Context(), sessionID, req.Text)
	if err != nil {
		logger.Error("web: message handling failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"reply":      reply,
	})
}

type scheduleRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Body      string `json:"body"`
	DueAt     string `json:"due_at"` // RFC 3339
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}

	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "due_at must be an RFC 3339 timestamp")
		return
	}

	id, err := s.sessions.ScheduleMessage(req.SessionID, req.Body, dueAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("web: websocket upgrade failed: %v", err)
		return
	}
	s.hub.attach(conn)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("web: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
