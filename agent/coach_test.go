package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/fitagent/backend/llm/providers"

	"github.com/fitagent/backend/llm"
	"github.com/fitagent/backend/model"
)

// memStore is an in-memory ChatStore, DataReader, and TaskWriter.
type memStore struct {
	goals      []Goal
	tasks      map[string][]Task
	profile    UserProfile
	summary    *ExistingTasksSummary
	summaryErr error
	messages   []StoredMessage
	inserted   []Task
	insertErr  error
}

func (m *memStore) GetOrCreateConversation(ctx context.Context, token, userID string, goalID *string) (string, error) {
	return "conv-1", nil
}

func (m *memStore) RecentMessages(ctx context.Context, token, conversationID string, limit int) ([]StoredMessage, error) {
	return m.messages, nil
}

func (m *memStore) InsertMessage(ctx context.Context, token, conversationID, role string, content map[string]any) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.messages = append(m.messages, StoredMessage{ConversationID: conversationID, Role: role, Content: content})
	return nil
}

func (m *memStore) ListGoals(ctx context.Context, token, userID string) ([]Goal, error) {
	return m.goals, nil
}

func (m *memStore) ListGoalTasks(ctx context.Context, token, goalID string) ([]Task, error) {
	return m.tasks[goalID], nil
}

func (m *memStore) GetProfile(ctx context.Context, token, userID string) (UserProfile, error) {
	return m.profile, nil
}

func (m *memStore) ExistingTasksSummary(ctx context.Context, token, goalID string) (*ExistingTasksSummary, error) {
	if m.summaryErr != nil {
		return nil, m.summaryErr
	}
	return m.summary, nil
}

func (m *memStore) InsertTasks(ctx context.Context, token, userID, goalID string, tasks []Task) error {
	m.inserted = append(m.inserted, tasks...)
	return nil
}

// coachTestServer answers chat-model requests with chatReply and gen-model
// requests with genReply, in the OpenAI wire shape.
func coachTestServer(t *testing.T, chatReply, genReply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		content := chatReply
		if req.Model == "gen-model" {
			content = genReply
		}
		resp := map[string]any{
			"model": req.Model,
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func coachClient(srv *httptest.Server) *llm.Client {
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityChat:       {Preferred: []string{"chat-model"}},
			model.CapabilityGeneration: {Preferred: []string{"gen-model"}},
		},
		map[string]*model.EndpointConfig{
			"chat-model": {Provider: "openai", URL: srv.URL, Model: "chat-model"},
			"gen-model":  {Provider: "openai", URL: srv.URL, Model: "gen-model"},
		},
	)
	return llm.NewClient(registry)
}

func TestChatPersistsBothMessages(t *testing.T) {
	srv := coachTestServer(t, "Keep it up! Two workouts left this week.", "")
	defer srv.Close()

	store := &memStore{goals: []Goal{{ID: "g1", UserID: "u1", Type: "fat_loss"}}}
	coach := NewCoach(coachClient(srv), store, store, store, NewOrchestrator(nil), "prompt")

	reply, err := coach.Chat(context.Background(), "token", "u1", nil, "How am I doing?")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.Contains(reply, "Keep it up") {
		t.Errorf("reply = %q", reply)
	}

	if len(store.messages) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(store.messages))
	}
	if store.messages[0].Role != "user" || store.messages[0].Text() != "How am I doing?" {
		t.Errorf("first row = %+v, want inbound user message", store.messages[0])
	}
	if store.messages[1].Role != "assistant" || store.messages[1].Text() != reply {
		t.Errorf("second row = %+v, want outbound reply", store.messages[1])
	}
}

func TestChatGenerationHandoff(t *testing.T) {
	directive := `{"action": "generate_tasks", "goal_id": "g1"}`
	genOutput := `{"items": [{"title": "Run 5k", "due_at": "2025-09-05T07:00:00Z"}, {"title": "Meal prep", "due_at": "2025-09-06T18:00:00Z"}]}`
	srv := coachTestServer(t, directive, genOutput)
	defer srv.Close()

	store := &memStore{
		goals:   []Goal{{ID: "g1", UserID: "u1", Type: "healthy_lifestyle"}},
		profile: UserProfile{"activity_level": "light"},
	}
	client := coachClient(srv)
	orch := NewOrchestrator([]Generator{
		NewLLMGenerator(GeneratorDiet, client, "diet prompt"),
		NewLLMGenerator(GeneratorStrength, client, "strength prompt"),
		NewLLMGenerator(GeneratorCardio, client, "cardio prompt"),
	})
	coach := NewCoach(client, store, store, store, orch, "prompt")

	reply, err := coach.Chat(context.Background(), "token", "u1", nil, "Build me a new plan please")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.Contains(reply, "2 new tasks") {
		t.Errorf("reply = %q, want task count summary", reply)
	}
	if len(store.inserted) != 2 {
		t.Errorf("inserted %d tasks, want 2", len(store.inserted))
	}
	// Transcript still gets both rows around the handoff.
	if len(store.messages) != 2 {
		t.Errorf("persisted %d messages, want 2", len(store.messages))
	}
}

func TestChatHandoffCarriesExistingTasks(t *testing.T) {
	var genContext string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string        `json:"model"`
			Messages []llm.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		content := `{"action": "generate_tasks", "goal_id": "g1"}`
		if req.Model == "gen-model" {
			for _, msg := range req.Messages {
				if strings.HasPrefix(msg.Content, "CONTEXT:") {
					genContext = msg.Content
				}
			}
			content = `{"items": [{"title": "Swim 30min", "due_at": "2025-09-08T07:00:00Z"}]}`
		}
		resp := map[string]any{
			"model": req.Model,
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	store := &memStore{
		goals: []Goal{{ID: "g1", UserID: "u1", Type: "healthy_lifestyle"}},
		summary: &ExistingTasksSummary{
			DayLoad: map[string]int{"2025-09-05": 2},
			Items:   []TaskRef{{Title: "Run 5k", DueAt: "2025-09-05T07:00:00Z"}},
		},
	}
	client := coachClient(srv)
	orch := NewOrchestrator([]Generator{NewLLMGenerator(GeneratorDiet, client, "diet prompt")})
	coach := NewCoach(client, store, store, store, orch, "prompt")

	if _, err := coach.Chat(context.Background(), "token", "u1", nil, "Regenerate my plan"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if genContext == "" {
		t.Fatal("generator never received a CONTEXT message")
	}
	if !strings.Contains(genContext, `"Run 5k"`) {
		t.Errorf("generator context missing existing task reference: %s", genContext)
	}
	if !strings.Contains(genContext, `"day_load"`) {
		t.Errorf("generator context missing schedule load: %s", genContext)
	}
}

func TestChatInboundPersistFailure(t *testing.T) {
	srv := coachTestServer(t, "should never be reached", "")
	defer srv.Close()

	store := &memStore{insertErr: errors.New("store down")}
	coach := NewCoach(coachClient(srv), store, store, store, NewOrchestrator(nil), "prompt")

	_, err := coach.Chat(context.Background(), "token", "u1", nil, "hello")
	if err == nil {
		t.Fatal("Chat() error = nil, want persistence failure")
	}
	if !strings.Contains(err.Error(), "inbound") {
		t.Errorf("error = %v, want inbound persistence error", err)
	}
}

func TestChatHistoryReplayed(t *testing.T) {
	var sawHistory bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []llm.Message `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, msg := range req.Messages {
			if msg.Role == "assistant" && msg.Content == "earlier reply" {
				sawHistory = true
			}
		}
		fmt.Fprint(w, `{"model":"chat-model","choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	store := &memStore{messages: []StoredMessage{
		{Role: "user", Content: map[string]any{"text": "earlier question"}},
		{Role: "assistant", Content: map[string]any{"text": "earlier reply"}},
	}}
	coach := NewCoach(coachClient(srv), store, store, store, NewOrchestrator(nil), "prompt")

	if _, err := coach.Chat(context.Background(), "token", "u1", nil, "follow-up"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !sawHistory {
		t.Error("prior assistant turn not replayed to the model")
	}
}
