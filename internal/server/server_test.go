package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ldi/taskboard/internal/db"
	"github.com/ldi/taskboard/internal/logging"
	"github.com/ldi/taskboard/pkg/models"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *db.DB) {
	t.Helper()
	database, err := db.Open(db.DriverModernc, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Seed(context.Background()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	opts = append([]Option{WithLatency(0), WithLogger(logging.Discard())}, opts...)
	return NewServer(database, opts...), database
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func TestServer_API(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	t.Run("GET /tasks", func(t *testing.T) {
		w := do(t, h, "GET", "/tasks", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}

		var rows []map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
			t.Fatalf("Failed to unmarshal tasks: %v", err)
		}
		if len(rows) != 5 {
			t.Fatalf("Expected 5 tasks, got %d", len(rows))
		}
		for _, row := range rows {
			if len(row) != 3 {
				t.Errorf("Expected only id, title and due_date, got %v", row)
			}
			if _, ok := row["tags"]; ok {
				t.Errorf("Summary must not carry tags: %v", row)
			}
		}
		// Due dates ascending, the undated Task 3 last.
		want := []float64{5, 2, 1, 4, 3}
		for i, row := range rows {
			if row["id"] != want[i] {
				t.Errorf("Position %d: expected id %v, got %v", i, want[i], row["id"])
			}
		}
	})

	t.Run("GET /tasks with filters", func(t *testing.T) {
		w := do(t, h, "GET", "/tasks?tag=home&q=task%202", nil)
		rows := decode[[]models.TaskSummary](t, w)
		if len(rows) != 1 || rows[0].ID != 2 {
			t.Errorf("Expected only task 2, got %v", rows)
		}

		w = do(t, h, "GET", "/tasks?tag=nothing", nil)
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("Expected an empty JSON array, got %s", w.Body.String())
		}
	})

	t.Run("GET /tasks/{id}", func(t *testing.T) {
		w := do(t, h, "GET", "/tasks/1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		detail := decode[models.TaskDetail](t, w)
		if detail.Title != "Task 1" || detail.Location == nil || *detail.Location != "Office" {
			t.Errorf("Unexpected detail: %+v", detail)
		}
		if len(detail.Tags) != 2 || detail.Tags[0].Name != "work" {
			t.Errorf("Unexpected tags: %v", detail.Tags)
		}
	})

	t.Run("GET /tasks/{id} missing", func(t *testing.T) {
		w := do(t, h, "GET", "/tasks/999", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %v", w.Code)
		}
		body := decode[map[string]string](t, w)
		if body["error"] != "task not found" {
			t.Errorf("Unexpected error body: %v", body)
		}
	})

	t.Run("GET /tasks/{id} invalid", func(t *testing.T) {
		w := do(t, h, "GET", "/tasks/abc", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %v", w.Code)
		}
	})

	t.Run("GET /tasks/batch", func(t *testing.T) {
		w := do(t, h, "GET", "/tasks/batch?ids=4,999,2", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		details := decode[[]models.TaskDetail](t, w)
		if len(details) != 2 || details[0].ID != 4 || details[1].ID != 2 {
			t.Errorf("Unexpected batch: %+v", details)
		}

		w = do(t, h, "GET", "/tasks/batch?ids=1,x", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for a bad id, got %v", w.Code)
		}
	})

	t.Run("GET /tags", func(t *testing.T) {
		w := do(t, h, "GET", "/tags", nil)
		tags := decode[[]models.TagCount](t, w)
		counts := map[string]int{}
		for _, tag := range tags {
			counts[tag.Name] = tag.Tasks
		}
		if counts["work"] != 2 || counts["home"] != 2 || counts["urgent"] != 1 || counts["shopping"] != 1 {
			t.Errorf("Unexpected tag counts: %v", counts)
		}
	})

	t.Run("GET /healthz", func(t *testing.T) {
		w := do(t, h, "GET", "/healthz", nil)
		if w.Code != http.StatusOK {
			t.Errorf("Expected status OK, got %v", w.Code)
		}
	})
}

func TestServer_Mutations(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	// Create
	w := do(t, h, "POST", "/tasks", map[string]any{"title": "Buy milk", "tags": []string{"shopping", "shopping"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %v: %s", w.Code, w.Body.String())
	}
	created := decode[map[string]any](t, w)
	if _, ok := created["tags"]; ok {
		t.Errorf("Create response must not carry tags: %v", created)
	}
	if created["status"] != "pending" {
		t.Errorf("Expected default status pending, got %v", created["status"])
	}
	id := int64(created["id"].(float64))

	w = do(t, h, "GET", fmt.Sprintf("/tasks/%d", id), nil)
	detail := decode[models.TaskDetail](t, w)
	if got := detail.TagNames(); len(got) != 1 || got[0] != "shopping" {
		t.Errorf("Expected tags [shopping], got %v", got)
	}

	// Update with an empty tag list clears the tags.
	w = do(t, h, "PUT", fmt.Sprintf("/tasks/%d", id), map[string]any{
		"title":  "Buy milk",
		"status": "completed",
		"tags":   []string{},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
	}
	w = do(t, h, "GET", fmt.Sprintf("/tasks/%d", id), nil)
	detail = decode[models.TaskDetail](t, w)
	if len(detail.Tags) != 0 || detail.Status != models.TaskStatusCompleted {
		t.Errorf("Unexpected detail after update: %+v", detail)
	}
	if !strings.Contains(w.Body.String(), `"tags":[]`) {
		t.Errorf("Expected an empty tags array, got %s", w.Body.String())
	}

	// Delete
	w = do(t, h, "DELETE", fmt.Sprintf("/tasks/%d", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	if body := decode[map[string]string](t, w); body["message"] != "Deleted successfully" {
		t.Errorf("Unexpected delete body: %v", body)
	}

	w = do(t, h, "DELETE", fmt.Sprintf("/tasks/%d", id), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %v", w.Code)
	}
}

func TestServer_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"create without title", "POST", "/tasks", map[string]any{"title": ""}, http.StatusBadRequest},
		{"create with bad date", "POST", "/tasks", map[string]any{"title": "x", "due_date": "tomorrow"}, http.StatusBadRequest},
		{"update without status", "PUT", "/tasks/1", map[string]any{"title": "x"}, http.StatusBadRequest},
		{"update missing task", "PUT", "/tasks/999", map[string]any{"title": "x", "status": "pending"}, http.StatusNotFound},
		{"delete missing task", "DELETE", "/tasks/999", nil, http.StatusNotFound},
		{"wrong method", "PATCH", "/tasks/1", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.target, tt.body)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/tasks", strings.NewReader("{"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("storage failure is generic", func(t *testing.T) {
		broken, database := newTestServer(t)
		database.Close()
		w := do(t, broken.Handler(), "GET", "/tasks", nil)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Expected status 500, got %d", w.Code)
		}
		if body := decode[map[string]string](t, w); body["error"] != "List failed" {
			t.Errorf("Unexpected error body: %v", body)
		}
	})
}

func TestServer_Latency(t *testing.T) {
	srv, _ := newTestServer(t, WithLatency(50*time.Millisecond))
	h := srv.Handler()

	start := time.Now()
	w := do(t, h, "GET", "/tasks/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected at least 50ms of latency, got %s", elapsed)
	}
}

func TestServer_LatencyHonorsCancellation(t *testing.T) {
	srv, _ := newTestServer(t, WithLatency(2*time.Second))
	h := srv.Handler()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/tasks", nil).WithContext(ctx)

	start := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), req)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected the delay to stop when the request is cancelled, took %s", elapsed)
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s, _ := newTestServer(t)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Start("127.0.0.1:0") }()

	select {
	case err := <-done:
		if err != http.ErrServerClosed {
			t.Errorf("expected ErrServerClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept running after Shutdown")
	}
}
