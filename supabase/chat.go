package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/fitagent/backend/agent"
)

// conversationRow is a stored conversation record.
type conversationRow struct {
	ID     string  `json:"id,omitempty"`
	UserID string  `json:"user_id"`
	GoalID *string `json:"goal_id,omitempty"`
}

// GetOrCreateConversation returns the user's conversation for the given goal
// scope, creating it on first use. A nil goalID selects the user's general
// conversation.
func (c *Client) GetOrCreateConversation(ctx context.Context, token, userID string, goalID *string) (string, error) {
	path := "/conversations?user_id=eq." + url.QueryEscape(userID)
	if goalID != nil && *goalID != "" {
		path += "&goal_id=eq." + url.QueryEscape(*goalID)
	} else {
		path += "&goal_id=is.null"
	}
	path += "&limit=1"

	var rows []conversationRow
	if err := c.do(ctx, token, http.MethodGet, path, nil, &rows, nil); err != nil {
		return "", err
	}
	if len(rows) > 0 {
		return rows[0].ID, nil
	}

	row := conversationRow{UserID: userID}
	if goalID != nil && *goalID != "" {
		row.GoalID = goalID
	}
	var created []conversationRow
	if err := c.do(ctx, token, http.MethodPost, "/conversations", row, &created, returnRepresentation); err != nil {
		return "", err
	}
	if len(created) == 0 {
		return "", fmt.Errorf("conversation insert returned no row")
	}
	return created[0].ID, nil
}

// RecentMessages returns up to limit transcript rows in chronological order.
func (c *Client) RecentMessages(ctx context.Context, token, conversationID string, limit int) ([]agent.StoredMessage, error) {
	if limit <= 0 {
		limit = 30
	}
	// Query newest-first to apply the limit, then restore chat order.
	path := fmt.Sprintf("/messages?conversation_id=eq.%s&order=created_at.desc&limit=%d",
		url.QueryEscape(conversationID), limit)
	var rows []agent.StoredMessage
	if err := c.do(ctx, token, http.MethodGet, path, nil, &rows, nil); err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt < rows[j].CreatedAt })
	return rows, nil
}

// InsertMessage appends one transcript row.
func (c *Client) InsertMessage(ctx context.Context, token, conversationID, role string, content map[string]any) error {
	row := agent.StoredMessage{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	return c.do(ctx, token, http.MethodPost, "/messages", row, nil, nil)
}
