package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fitagent/backend/agent"
)

// GetProfile fetches the user's profile. A missing profile is ErrNotFound;
// generation callers typically substitute an empty profile instead of
// failing.
func (c *Client) GetProfile(ctx context.Context, token, userID string) (agent.UserProfile, error) {
	path := "/profiles?user_id=eq." + url.QueryEscape(userID) + "&limit=1"
	var rows []agent.UserProfile
	if err := c.do(ctx, token, http.MethodGet, path, nil, &rows, nil); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
	}
	return rows[0], nil
}

// UpsertProfile creates or replaces the user's profile row. The user_id
// column carries the conflict target.
func (c *Client) UpsertProfile(ctx context.Context, token, userID string, profile agent.UserProfile) (agent.UserProfile, error) {
	body := make(agent.UserProfile, len(profile)+1)
	for k, v := range profile {
		body[k] = v
	}
	body["user_id"] = userID

	headers := map[string]string{
		"Prefer": "return=representation,resolution=merge-duplicates",
	}
	var rows []agent.UserProfile
	if err := c.do(ctx, token, http.MethodPost, "/profiles?on_conflict=user_id", body, &rows, headers); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile upsert returned no row")
	}
	return rows[0], nil
}
