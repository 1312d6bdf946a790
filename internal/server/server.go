package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ldi/taskboard/internal/db"
	"github.com/ldi/taskboard/pkg/models"
)

// DefaultLatency is the artificial delay added to read endpoints.
const DefaultLatency = 100 * time.Millisecond

type Server struct {
	db      *db.DB
	logger  *slog.Logger
	latency time.Duration

	mu     sync.Mutex
	server *http.Server
	closed bool
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLatency sets the delay applied before answering list and detail
// requests. Zero disables it.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.latency = d
		}
	}
}

func NewServer(database *db.DB, opts ...Option) *Server {
	s := &Server{
		db:      database,
		logger:  slog.Default(),
		latency: DefaultLatency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("GET /tasks/batch", s.handleBatchTasks)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	mux.HandleFunc("POST /tasks", s.handleCreateTask)
	mux.HandleFunc("PUT /tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("GET /tags", s.handleListTags)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return Chain(mux,
		WithRecover(s.logger),
		WithRequestID,
		WithAccessLog(s.logger),
		WithCORS,
	)
}

// Start listens on addr and blocks until the server stops. It returns
// http.ErrServerClosed after Shutdown, even when Shutdown ran first.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("server_listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter := models.ListFilter{
		Query: r.URL.Query().Get("q"),
		Tag:   r.URL.Query().Get("tag"),
	}

	tasks, err := s.db.ListTasks(r.Context(), filter)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "List failed", err)
		return
	}
	if !s.delay(r) {
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := s.db.GetTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "Get failed", err)
		return
	}
	if !s.delay(r) {
		return
	}
	if task == nil {
		writeErr(w, http.StatusNotFound, db.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleBatchTasks(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := s.db.GetTasks(r.Context(), ids)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "Get failed", err)
		return
	}
	if !s.delay(r) {
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	task, err := s.db.CreateTask(r.Context(), in)
	if err != nil {
		s.storeError(w, r, "Create failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in models.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	task, err := s.db.UpdateTask(r.Context(), id, in)
	if err != nil {
		s.storeError(w, r, "Update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.db.DeleteTask(r.Context(), id); err != nil {
		s.storeError(w, r, "Delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted successfully"})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.db.ListTags(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "List failed", err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.fail(w, r, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// delay sleeps for the configured latency. It reports false when the
// request was cancelled first; nothing is written in that case.
func (s *Server) delay(r *http.Request) bool {
	if s.latency <= 0 {
		return true
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

// storeError maps store errors to responses. Validation failures carry
// their detail; anything else but ErrNotFound is reported generically.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeErr(w, http.StatusNotFound, db.ErrNotFound.Error())
	case errors.Is(err, db.ErrValidation):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		s.fail(w, r, http.StatusInternalServerError, msg, err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, msg string, err error) {
	s.logger.ErrorContext(r.Context(), "request_failed",
		"request_id", RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeErr(w, code, msg)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func parseIDs(raw string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("invalid task id: " + part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
