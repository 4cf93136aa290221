package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fitagent/backend/llm"
	"github.com/fitagent/backend/model"
)

// StoredMessage is one persisted chat transcript row.
type StoredMessage struct {
	ID             string         `json:"id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Role           string         `json:"role"`
	Content        map[string]any `json:"content"`
	CreatedAt      string         `json:"created_at,omitempty"`
}

// Text returns the message's textual content, or "" when absent.
func (m StoredMessage) Text() string {
	if m.Content == nil {
		return ""
	}
	s, _ := m.Content["text"].(string)
	return s
}

// ChatStore persists conversation transcripts. The token is the caller's
// bearer token; the store operates under the caller's own authorization.
type ChatStore interface {
	GetOrCreateConversation(ctx context.Context, token, userID string, goalID *string) (string, error)
	RecentMessages(ctx context.Context, token, conversationID string, limit int) ([]StoredMessage, error)
	InsertMessage(ctx context.Context, token, conversationID, role string, content map[string]any) error
}

// DataReader provides the read-only lookups the coach can answer from.
type DataReader interface {
	ListGoals(ctx context.Context, token, userID string) ([]Goal, error)
	ListGoalTasks(ctx context.Context, token, goalID string) ([]Task, error)
	GetProfile(ctx context.Context, token, userID string) (UserProfile, error)
	ExistingTasksSummary(ctx context.Context, token, goalID string) (*ExistingTasksSummary, error)
}

// TaskWriter persists generated tasks when the coach triggers plan
// generation from chat.
type TaskWriter interface {
	InsertTasks(ctx context.Context, token, userID, goalID string, tasks []Task) error
}

const defaultHistoryLimit = 30

// Coach is the conversational coordinator: it keeps a persistent transcript,
// answers questions from the user's own records, and can hand off to the
// generation pipeline when the user asks for a new plan.
type Coach struct {
	client       *llm.Client
	store        ChatStore
	data         DataReader
	tasks        TaskWriter
	orchestrator *Orchestrator
	prompt       string
	historyLimit int
	logger       *slog.Logger
}

// CoachOption configures a Coach.
type CoachOption func(*Coach)

// WithHistoryLimit bounds how many transcript rows are replayed per turn.
func WithHistoryLimit(n int) CoachOption {
	return func(c *Coach) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithCoachLogger sets the logger used for coach diagnostics.
func WithCoachLogger(logger *slog.Logger) CoachOption {
	return func(c *Coach) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoach wires the conversational coordinator. The prompt is the coach's
// system prompt and carries the generation-handoff contract.
func NewCoach(client *llm.Client, store ChatStore, data DataReader, tasks TaskWriter, orch *Orchestrator, prompt string, opts ...CoachOption) *Coach {
	c := &Coach{
		client:       client,
		store:        store,
		data:         data,
		tasks:        tasks,
		orchestrator: orch,
		prompt:       prompt,
		historyLimit: defaultHistoryLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat runs one conversational turn. The inbound message is persisted before
// any model call, and the outbound reply before returning, so the transcript
// stays ordered and complete even when a turn is retried.
func (c *Coach) Chat(ctx context.Context, token, userID string, goalID *string, message string) (string, error) {
	conversationID, err := c.store.GetOrCreateConversation(ctx, token, userID, goalID)
	if err != nil {
		return "", fmt.Errorf("resolving conversation: %w", err)
	}

	history, err := c.store.RecentMessages(ctx, token, conversationID, c.historyLimit)
	if err != nil {
		c.logger.Warn("loading chat history failed, continuing without it",
			"conversation_id", conversationID, "error", err)
		history = nil
	}

	if err := c.store.InsertMessage(ctx, token, conversationID, "user", map[string]any{"text": message}); err != nil {
		return "", fmt.Errorf("persisting inbound message: %w", err)
	}

	reply, err := c.respond(ctx, token, userID, goalID, history, message)
	if err != nil {
		return "", err
	}

	if err := c.store.InsertMessage(ctx, token, conversationID, "assistant", map[string]any{"text": reply}); err != nil {
		return "", fmt.Errorf("persisting outbound message: %w", err)
	}
	return reply, nil
}

// respond builds the model turn and handles the generation handoff.
func (c *Coach) respond(ctx context.Context, token, userID string, goalID *string, history []StoredMessage, message string) (string, error) {
	messages := []llm.Message{{Role: "system", Content: c.prompt}}
	if data := c.dataBlock(ctx, token, userID, goalID); data != "" {
		messages = append(messages, llm.Message{Role: "system", Content: "DATA:\n" + data})
	}
	for _, m := range history {
		role := m.Role
		if role != "user" && role != "assistant" {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Text()})
	}
	messages = append(messages, llm.Message{Role: "user", Content: message})

	resp, err := c.client.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityChat),
		Messages:   messages,
	})
	if err != nil {
		return "", fmt.Errorf("coach completion: %w", err)
	}

	if action, targetGoal, ok := parseGenerateAction(resp.Content); ok && action == "generate_tasks" {
		return c.generateFromChat(ctx, token, userID, targetGoal, goalID)
	}
	return strings.TrimSpace(resp.Content), nil
}

// dataBlock assembles the read-only record context: the user's goals and,
// when a goal is in scope, its tasks. Lookup failures degrade to a smaller
// block instead of failing the turn.
func (c *Coach) dataBlock(ctx context.Context, token, userID string, goalID *string) string {
	block := make(map[string]any)
	goals, err := c.data.ListGoals(ctx, token, userID)
	if err != nil {
		c.logger.Warn("goal lookup for chat context failed", "error", err)
	} else {
		block["goals"] = goals
	}
	if goalID != nil && *goalID != "" {
		tasks, err := c.data.ListGoalTasks(ctx, token, *goalID)
		if err != nil {
			c.logger.Warn("task lookup for chat context failed", "goal_id", *goalID, "error", err)
		} else {
			block["tasks"] = tasks
		}
	}
	if len(block) == 0 {
		return ""
	}
	b, err := json.Marshal(block)
	if err != nil {
		return ""
	}
	return string(b)
}

// generateFromChat runs the generation pipeline for the goal the model named
// (or the conversation's goal) and reports the outcome conversationally.
func (c *Coach) generateFromChat(ctx context.Context, token, userID, targetGoal string, fallbackGoal *string) (string, error) {
	if targetGoal == "" && fallbackGoal != nil {
		targetGoal = *fallbackGoal
	}
	goal, ok := c.findGoal(ctx, token, userID, targetGoal)
	if !ok {
		return "I couldn't find that goal. Which goal should I build a plan for?", nil
	}

	profile, err := c.data.GetProfile(ctx, token, userID)
	if err != nil {
		c.logger.Warn("profile lookup for generation failed, using empty profile", "error", err)
		profile = UserProfile{}
	}

	summary, err := c.data.ExistingTasksSummary(ctx, token, goal.ID)
	if err != nil {
		c.logger.Warn("existing task summary lookup failed, generating without it",
			"goal_id", goal.ID, "error", err)
		summary = nil
	}

	result := c.orchestrator.Generate(ctx, profile, goal, summary)
	if len(result.Items) == 0 {
		return "I wasn't able to build a plan right now. Please try again in a moment.", nil
	}
	if err := c.tasks.InsertTasks(ctx, token, userID, goal.ID, result.Items); err != nil {
		return "", fmt.Errorf("persisting generated tasks: %w", err)
	}
	return fmt.Sprintf("Done! I've added %d new tasks to your %s plan. Check your task list to get started.",
		len(result.Items), goal.Type), nil
}

// findGoal resolves a goal by ID among the user's own goals.
func (c *Coach) findGoal(ctx context.Context, token, userID, goalID string) (Goal, bool) {
	goals, err := c.data.ListGoals(ctx, token, userID)
	if err != nil {
		c.logger.Warn("goal lookup for generation failed", "error", err)
		return Goal{}, false
	}
	for _, g := range goals {
		if g.ID == goalID || goalID == "" {
			return g, true
		}
	}
	return Goal{}, false
}

// parseGenerateAction detects the coach's generation-handoff directive in a
// model reply. Anything that doesn't parse cleanly is treated as plain text.
func parseGenerateAction(content string) (action, goalID string, ok bool) {
	extracted := llm.ExtractJSON(content)
	if extracted == "" {
		return "", "", false
	}
	var directive struct {
		Action string `json:"action"`
		GoalID string `json:"goal_id"`
	}
	if err := json.Unmarshal([]byte(extracted), &directive); err != nil {
		return "", "", false
	}
	if directive.Action == "" {
		return "", "", false
	}
	return directive.Action, directive.GoalID, true
}
