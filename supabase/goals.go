package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fitagent/backend/agent"
)

// ListGoals returns the user's goals, newest first.
func (c *Client) ListGoals(ctx context.Context, token, userID string) ([]agent.Goal, error) {
	path := "/goals?user_id=eq." + url.QueryEscape(userID) + "&order=created_at.desc"
	var goals []agent.Goal
	if err := c.do(ctx, token, http.MethodGet, path, nil, &goals, nil); err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []agent.Goal{}
	}
	return goals, nil
}

// GetGoal fetches one goal owned by the user.
func (c *Client) GetGoal(ctx context.Context, token, userID, goalID string) (agent.Goal, error) {
	path := "/goals?id=eq." + url.QueryEscape(goalID) + "&user_id=eq." + url.QueryEscape(userID) + "&limit=1"
	var goals []agent.Goal
	if err := c.do(ctx, token, http.MethodGet, path, nil, &goals, nil); err != nil {
		return agent.Goal{}, err
	}
	if len(goals) == 0 {
		return agent.Goal{}, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	return goals[0], nil
}

// CreateGoal inserts a goal and returns the stored row.
func (c *Client) CreateGoal(ctx context.Context, token string, goal agent.Goal) (agent.Goal, error) {
	var rows []agent.Goal
	if err := c.do(ctx, token, http.MethodPost, "/goals", goal, &rows, returnRepresentation); err != nil {
		return agent.Goal{}, err
	}
	if len(rows) == 0 {
		return agent.Goal{}, fmt.Errorf("goal insert returned no row")
	}
	return rows[0], nil
}
