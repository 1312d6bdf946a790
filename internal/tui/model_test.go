package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/ldi/taskboard/internal/client"
	"github.com/ldi/taskboard/internal/db"
	"github.com/ldi/taskboard/internal/logging"
	"github.com/ldi/taskboard/internal/server"
	"github.com/ldi/taskboard/pkg/models"
)

type testEnv struct {
	m  *Model
	db *db.DB
	ts *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(EnvTheme, "ascii")

	database, err := db.Open(db.DriverModernc, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Seed(context.Background()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	srv := server.NewServer(database, server.WithLatency(0), server.WithLogger(logging.Discard()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := client.New(ts.URL, logging.Discard())
	m := New(context.Background(), client.NewRefresher(c, client.ModeNPlusOne))
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	drain(m, m.Init())

	return &testEnv{m: m, db: database, ts: ts}
}

// drain runs cmd and feeds refresh results back into the model. Other
// messages (spinner ticks, cursor blinks) are dropped.
func drain(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(m, c)
		}
	case refreshedMsg:
		m.Update(msg)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, s string) tea.Cmd {
	_, cmd := m.Update(key(s))
	return cmd
}

func titles(m *Model) []string {
	out := make([]string, 0, len(m.list.Tasks))
	for _, task := range m.list.Tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestInitialLoad(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	if len(m.list.Tasks) != 5 {
		t.Fatalf("expected 5 tasks after the initial load, got %d", len(m.list.Tasks))
	}
	if m.loading {
		t.Errorf("expected loading to be cleared")
	}
	if m.stats == nil || m.stats.Requests != 6 {
		t.Errorf("expected 1 list + 5 detail requests, got %+v", m.stats)
	}

	view := xansi.Strip(m.View())
	if !strings.Contains(view, "Task 1") {
		t.Errorf("expected view to list Task 1")
	}
	if !strings.Contains(view, "6 requests") {
		t.Errorf("expected the request count in the status line")
	}
	if !strings.Contains(view, "Taskboard") {
		t.Errorf("expected the header")
	}
}

func TestFilterAppliedOnlyOnEnter(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	press(m, "/")
	if m.mode != modeQuery {
		t.Fatalf("expected keyword input to be focused")
	}
	press(m, "Task 2")
	if len(m.list.Tasks) != 5 {
		t.Errorf("expected no refresh while typing, got %d tasks", len(m.list.Tasks))
	}

	drain(m, press(m, "enter"))
	if m.mode != modeBrowse {
		t.Errorf("expected enter to leave the input")
	}
	if got := titles(m); len(got) != 1 || got[0] != "Task 2" {
		t.Errorf("expected only Task 2, got %v", got)
	}

	// Narrow further by tag; the keyword stays applied.
	press(m, "#")
	press(m, "work")
	drain(m, press(m, "enter"))
	if len(m.list.Tasks) != 0 {
		t.Errorf("expected no task matching both filters, got %v", titles(m))
	}

	// Clearing the inputs does not refetch by itself.
	press(m, "x")
	if len(m.list.Tasks) != 0 {
		t.Errorf("expected clear to keep the current list until the next search")
	}
	drain(m, press(m, "r"))
	if len(m.list.Tasks) != 5 {
		t.Errorf("expected all tasks after clearing and searching, got %d", len(m.list.Tasks))
	}
}

func TestCreateTask(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	press(m, "n")
	if m.mode != modeForm || m.form == nil || m.form.isEdit() {
		t.Fatalf("expected the new task form")
	}

	press(m, "Buy milk")
	for i := 0; i < fieldTags; i++ {
		press(m, "tab")
	}
	press(m, "shopping, shopping, ")
	drain(m, press(m, "ctrl+s"))

	if m.mode != modeBrowse {
		t.Errorf("expected the form to close")
	}
	if m.errMsg != "" {
		t.Fatalf("unexpected error: %s", m.errMsg)
	}

	var created *models.TaskDetail
	for _, task := range m.list.Tasks {
		if task.Title == "Buy milk" {
			created = task
		}
	}
	if created == nil {
		t.Fatalf("expected the new task in the refreshed list, got %v", titles(m))
	}
	if got := created.TagNames(); len(got) != 1 || got[0] != "shopping" {
		t.Errorf("expected tags [shopping], got %v", got)
	}
	if created.Status != models.TaskStatusPending {
		t.Errorf("expected pending, got %s", created.Status)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	press(m, "n")
	cmd := press(m, "ctrl+s")
	if cmd != nil {
		t.Errorf("expected no request without a title")
	}
	if m.mode != modeForm {
		t.Errorf("expected the form to stay open")
	}
	if !strings.Contains(m.errMsg, "title is required") {
		t.Errorf("expected a title error, got %q", m.errMsg)
	}

	press(m, "esc")
	if m.mode != modeBrowse || m.form != nil {
		t.Errorf("expected esc to cancel the form")
	}
}

func TestEditTask(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	sel := m.list.Selected()
	press(m, "e")
	if m.form == nil || m.form.editingID != sel.ID {
		t.Fatalf("expected the edit form for task %d", sel.ID)
	}
	if m.form.value(fieldTitle) != sel.Title {
		t.Errorf("expected the title to be prefilled")
	}
	if m.form.value(fieldTags) != strings.Join(sel.TagNames(), ", ") {
		t.Errorf("expected the tags to be prefilled, got %q", m.form.value(fieldTags))
	}

	m.form.setValue(fieldTags, "errands")
	drain(m, press(m, "ctrl+s"))

	detail, err := env.db.GetTask(context.Background(), sel.ID)
	if err != nil || detail == nil {
		t.Fatalf("failed to reload task: %v", err)
	}
	if got := detail.TagNames(); len(got) != 1 || got[0] != "errands" {
		t.Errorf("expected tags to be replaced by [errands], got %v", got)
	}
	if detail.Status != sel.Status {
		t.Errorf("expected the status to be kept, got %s", detail.Status)
	}
}

func TestEditDescriptionAcrossLines(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	sel := m.list.Selected()
	press(m, "e")
	press(m, "tab")
	if !m.form.multiline() {
		t.Fatalf("expected the description to be focused")
	}
	press(m, "enter")
	if m.mode != modeForm {
		t.Fatalf("expected enter in the description to keep the form open")
	}
	press(m, "more")
	drain(m, press(m, "ctrl+s"))

	detail, err := env.db.GetTask(context.Background(), sel.ID)
	if err != nil || detail == nil {
		t.Fatalf("failed to reload task: %v", err)
	}
	if !strings.HasSuffix(detail.Description, "\nmore") {
		t.Errorf("expected a new line in the description, got %q", detail.Description)
	}
	if detail.Title != sel.Title {
		t.Errorf("expected the title to be kept, got %q", detail.Title)
	}
}

func TestToggleStatus(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	sel := m.list.Selected()
	was := sel.Status
	tags := sel.TagNames()

	drain(m, press(m, "space"))

	now := m.list.Selected()
	if now == nil || now.ID != sel.ID {
		t.Fatalf("expected the cursor to stay on task %d", sel.ID)
	}
	if now.Status != was.Toggle() {
		t.Errorf("expected status %s, got %s", was.Toggle(), now.Status)
	}
	if strings.Join(now.TagNames(), ",") != strings.Join(tags, ",") {
		t.Errorf("expected tags to survive the toggle, got %v", now.TagNames())
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	press(m, "d")
	if m.mode != modeConfirmDelete {
		t.Fatalf("expected a confirmation prompt")
	}
	if !strings.Contains(xansi.Strip(m.View()), "(y/n)") {
		t.Errorf("expected the prompt in the view")
	}
	if cmd := press(m, "n"); cmd != nil {
		t.Errorf("expected no request when declined")
	}
	if len(m.list.Tasks) != 5 {
		t.Errorf("expected nothing deleted")
	}

	press(m, "d")
	drain(m, press(m, "y"))
	if len(m.list.Tasks) != 4 {
		t.Errorf("expected 4 tasks after delete, got %d", len(m.list.Tasks))
	}
}

func TestModeToggle(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	press(m, "m")
	if m.refresher.Mode() != client.ModeBatched {
		t.Fatalf("expected batched mode")
	}
	drain(m, press(m, "r"))
	if m.stats.Requests != 2 {
		t.Errorf("expected 2 requests in batched mode, got %d", m.stats.Requests)
	}
	if len(m.list.Tasks) != 5 {
		t.Errorf("expected 5 tasks, got %d", len(m.list.Tasks))
	}
}

func TestRefreshFailureKeepsList(t *testing.T) {
	env := newTestEnv(t)
	m := env.m
	env.ts.Close()

	drain(m, press(m, "r"))
	if m.loading {
		t.Errorf("expected loading to be cleared after a failure")
	}
	if m.errMsg == "" {
		t.Errorf("expected an error in the status line")
	}
	if len(m.list.Tasks) != 5 {
		t.Errorf("expected the previous list to stay, got %d tasks", len(m.list.Tasks))
	}
	if !strings.Contains(xansi.Strip(m.View()), "Error:") {
		t.Errorf("expected the error in the view")
	}
}

func TestNavigationUpdatesDetail(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	first := xansi.Strip(m.detail.Content())
	press(m, "j")
	second := xansi.Strip(m.detail.Content())
	if first == second {
		t.Errorf("expected the detail pane to follow the cursor")
	}
	if !strings.Contains(second, m.list.Selected().Title) {
		t.Errorf("expected the detail pane to show %q, got %q", m.list.Selected().Title, second)
	}
}

func TestQuit(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	cmd := press(m, "q")
	if !m.quitting || cmd == nil {
		t.Errorf("expected q to quit")
	}
	if m.View() != "" {
		t.Errorf("expected an empty view after quitting")
	}
}

func TestTaskMarkdown(t *testing.T) {
	due, loc := "2026-11-03", "Office"
	md := taskMarkdown(&models.TaskDetail{
		Task: models.Task{Title: "Task 1", Description: "Some *notes*", Status: models.TaskStatusPending, DueDate: &due, Location: &loc},
		Tags: []models.Tag{{Name: "work"}, {Name: "urgent"}},
	})

	for _, want := range []string{"## Task 1", "Some *notes*", "**Status:** pending", "**Due:** 2026-11-03", "**Location:** Office", "**Tags:** work, urgent"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in %q", want, md)
		}
	}
}
