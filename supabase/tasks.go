package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fitagent/backend/agent"
)

// ErrNotFound reports a lookup that matched no rows the caller can see.
var ErrNotFound = errors.New("not found")

// TaskRow is a stored task record.
type TaskRow struct {
	ID          string `json:"id,omitempty"`
	GoalID      string `json:"goal_id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueAt       string `json:"due_at"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// ListTasks returns a goal's tasks ordered by due date.
func (c *Client) ListTasks(ctx context.Context, token, goalID string) ([]TaskRow, error) {
	path := "/tasks?goal_id=eq." + url.QueryEscape(goalID) + "&order=due_at.asc"
	var rows []TaskRow
	if err := c.do(ctx, token, http.MethodGet, path, nil, &rows, nil); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []TaskRow{}
	}
	return rows, nil
}

// ListGoalTasks returns a goal's tasks in the pipeline's task shape. It
// backs the coach's read-only data context.
func (c *Client) ListGoalTasks(ctx context.Context, token, goalID string) ([]agent.Task, error) {
	rows, err := c.ListTasks(ctx, token, goalID)
	if err != nil {
		return nil, err
	}
	tasks := make([]agent.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, agent.Task{
			Title:       r.Title,
			Description: r.Description,
			DueAt:       r.DueAt,
			Status:      r.Status,
		})
	}
	return tasks, nil
}

// InsertTasks bulk-inserts generated tasks for a goal.
func (c *Client) InsertTasks(ctx context.Context, token, userID, goalID string, tasks []agent.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]TaskRow, 0, len(tasks))
	for _, t := range tasks {
		status := t.Status
		if status == "" {
			status = agent.StatusPending
		}
		rows = append(rows, TaskRow{
			GoalID:      goalID,
			UserID:      userID,
			Title:       t.Title,
			Description: t.Description,
			DueAt:       t.DueAt,
			Status:      status,
		})
	}
	return c.do(ctx, token, http.MethodPost, "/tasks", rows, nil, nil)
}

// UpdateTaskStatus patches one task's status under the caller's own
// authorization and returns the updated row.
func (c *Client) UpdateTaskStatus(ctx context.Context, token, userID, taskID, status string) (TaskRow, error) {
	path := "/tasks?id=eq." + url.QueryEscape(taskID) + "&user_id=eq." + url.QueryEscape(userID)
	body := map[string]string{"status": status}
	var rows []TaskRow
	if err := c.do(ctx, token, http.MethodPatch, path, body, &rows, returnRepresentation); err != nil {
		return TaskRow{}, err
	}
	if len(rows) == 0 {
		return TaskRow{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return rows[0], nil
}

// ExistingTasksSummary builds the compact schedule view handed to the
// generators: per-day load plus title/due references for duplicate hints.
func (c *Client) ExistingTasksSummary(ctx context.Context, token, goalID string) (*agent.ExistingTasksSummary, error) {
	rows, err := c.ListTasks(ctx, token, goalID)
	if err != nil {
		return nil, err
	}
	summary := &agent.ExistingTasksSummary{
		DayLoad: make(map[string]int),
		Items:   make([]agent.TaskRef, 0, len(rows)),
	}
	for _, r := range rows {
		if len(r.DueAt) >= 10 {
			summary.DayLoad[r.DueAt[:10]]++
		}
		summary.Items = append(summary.Items, agent.TaskRef{Title: r.Title, DueAt: r.DueAt})
	}
	return summary, nil
}
