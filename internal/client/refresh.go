package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ldi/taskboard/pkg/models"
)

// Mode selects how a refresh loads task details.
type Mode string

const (
	// ModeNPlusOne issues one list request, then one detail request per row.
	ModeNPlusOne Mode = "nplusone"
	// ModeBatched issues one list request and one batch request.
	ModeBatched Mode = "batched"
)

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeNPlusOne:
		return ModeNPlusOne, nil
	case ModeBatched:
		return ModeBatched, nil
	}
	return "", fmt.Errorf("unknown fetch mode: %q", s)
}

// API is the part of Client a Refresher needs.
type API interface {
	List(ctx context.Context, filter models.ListFilter) ([]models.TaskSummary, error)
	Get(ctx context.Context, id int64) (*models.TaskDetail, error)
	GetBatch(ctx context.Context, ids []int64) ([]*models.TaskDetail, error)
	Create(ctx context.Context, in models.TaskInput) (*models.Task, error)
	Update(ctx context.Context, id int64, in models.TaskInput) (*models.Task, error)
	Delete(ctx context.Context, id int64) error
}

// Stats describes one refresh.
type Stats struct {
	RefreshID string
	Mode      Mode
	Requests  int
	Elapsed   time.Duration
}

// Result is a fully assembled task list, in list order.
type Result struct {
	Tasks []*models.TaskDetail
	Stats Stats
}

// Refresher assembles the displayed task list from the list and detail
// endpoints and re-runs that after every mutation.
//
// Refreshes are not sequenced against each other: when two overlap, the
// caller sees both results in completion order.
type Refresher struct {
	api API

	mu     sync.Mutex
	mode   Mode
	filter models.ListFilter
}

func NewRefresher(api API, mode Mode) *Refresher {
	if mode == "" {
		mode = ModeNPlusOne
	}
	return &Refresher{api: api, mode: mode}
}

func (r *Refresher) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *Refresher) SetMode(mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
}

// ToggleMode switches between ModeNPlusOne and ModeBatched and returns the new mode.
func (r *Refresher) ToggleMode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModeBatched {
		r.mode = ModeNPlusOne
	} else {
		r.mode = ModeBatched
	}
	return r.mode
}

// Filter returns the filter of the most recent Refresh.
func (r *Refresher) Filter() models.ListFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter
}

// Refresh lists the tasks matching filter, then loads every detail. In
// ModeNPlusOne all detail requests run at once, with no cap and no retry.
// Any failure fails the whole refresh and no partial list is returned.
func (r *Refresher) Refresh(ctx context.Context, filter models.ListFilter) (*Result, error) {
	r.mu.Lock()
	r.filter = filter
	mode := r.mode
	r.mu.Unlock()

	stats := Stats{RefreshID: uuid.NewString(), Mode: mode}
	ctx = WithRefreshID(ctx, stats.RefreshID)
	start := time.Now()

	summaries, err := r.api.List(ctx, filter)
	stats.Requests++
	if err != nil {
		return nil, err
	}

	var tasks []*models.TaskDetail
	switch mode {
	case ModeBatched:
		tasks, err = r.fetchBatch(ctx, summaries)
		if len(summaries) > 0 {
			stats.Requests++
		}
	default:
		tasks, err = r.fetchEach(ctx, summaries)
		stats.Requests += len(summaries)
	}
	if err != nil {
		return nil, err
	}

	stats.Elapsed = time.Since(start)
	return &Result{Tasks: tasks, Stats: stats}, nil
}

// fetchEach issues one Get per summary concurrently. A failed request does
// not cancel its siblings; the first error is returned once all are done.
func (r *Refresher) fetchEach(ctx context.Context, summaries []models.TaskSummary) ([]*models.TaskDetail, error) {
	tasks := make([]*models.TaskDetail, len(summaries))

	var g errgroup.Group
	for i, s := range summaries {
		g.Go(func() error {
			d, err := r.api.Get(ctx, s.ID)
			if err != nil {
				return err
			}
			tasks[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *Refresher) fetchBatch(ctx context.Context, summaries []models.TaskSummary) ([]*models.TaskDetail, error) {
	if len(summaries) == 0 {
		return []*models.TaskDetail{}, nil
	}

	ids := make([]int64, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}

	details, err := r.api.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.TaskDetail, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	tasks := make([]*models.TaskDetail, 0, len(summaries))
	for _, s := range summaries {
		d, ok := byID[s.ID]
		if !ok {
			return nil, fmt.Errorf("task %d disappeared between list and batch: %w", s.ID, &APIError{Status: 404, Message: "task not found"})
		}
		tasks = append(tasks, d)
	}
	return tasks, nil
}

// Create creates a task, then refreshes with the current filter.
func (r *Refresher) Create(ctx context.Context, in models.TaskInput) (*Result, error) {
	if _, err := r.api.Create(ctx, in); err != nil {
		return nil, err
	}
	return r.Refresh(ctx, r.Filter())
}

// Update replaces a task, then refreshes with the current filter.
func (r *Refresher) Update(ctx context.Context, id int64, in models.TaskInput) (*Result, error) {
	if _, err := r.api.Update(ctx, id, in); err != nil {
		return nil, err
	}
	return r.Refresh(ctx, r.Filter())
}

// Delete deletes a task, then refreshes with the current filter.
func (r *Refresher) Delete(ctx context.Context, id int64) (*Result, error) {
	if err := r.api.Delete(ctx, id); err != nil {
		return nil, err
	}
	return r.Refresh(ctx, r.Filter())
}

// ToggleStatus re-sends the whole task, tags included, with its status flipped.
func (r *Refresher) ToggleStatus(ctx context.Context, task *models.TaskDetail) (*Result, error) {
	in := task.Input()
	in.Status = task.Status.Toggle()
	return r.Update(ctx, task.ID, in)
}

// ParseTags splits a comma separated tag field, trimming names and dropping
// empty ones. The result is never nil so that an empty field clears tags.
func ParseTags(s string) []string {
	tags := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
