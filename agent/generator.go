package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fitagent/backend/llm"
	"github.com/fitagent/backend/model"
)

// Generator produces candidate tasks for one coaching domain. A generator
// may return any output shape understood by Normalize; callers never depend
// on the concrete type.
type Generator interface {
	ID() GeneratorID

	// Converse invokes the generator through its conversational calling
	// convention: the context payload arrives as a user message.
	Converse(ctx context.Context, messages []llm.Message) (any, error)

	// GenerateDirect invokes the generator with the serialized context
	// payload as a single argument. It is the fallback convention for
	// generators that reject the conversational form.
	GenerateDirect(ctx context.Context, contextJSON string) (any, error)
}

// contextPayload is the serialized generation context shared by both calling
// conventions. The summary key is always present; a null value tells the
// generator there is no existing schedule to work around.
type contextPayload struct {
	UserProfile          UserProfile           `json:"user_profile"`
	Goal                 Goal                  `json:"goal"`
	ExistingTasksSummary *ExistingTasksSummary `json:"existing_tasks_summary"`
}

// Invoker calls a single generator and normalizes whatever comes back.
// It owns the calling-convention fallback: conversational first, direct on
// error. Generators differ in which convention they accept, and probing is
// cheaper than maintaining per-generator capability flags.
type Invoker struct {
	logger *slog.Logger
}

// NewInvoker returns an invoker logging through the given logger.
// A nil logger falls back to slog.Default().
func NewInvoker(logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{logger: logger}
}

// Invoke runs one generator against the generation context and returns its
// normalized, validated items. Output-shape problems degrade to an empty
// list; call failures (after the fallback convention) surface as errors for
// the caller's isolation boundary.
func (iv *Invoker) Invoke(ctx context.Context, gen Generator, profile UserProfile, goal Goal, summary *ExistingTasksSummary) ([]Task, error) {
	payload, err := json.Marshal(contextPayload{
		UserProfile:          profile,
		Goal:                 goal,
		ExistingTasksSummary: summary,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling generation context for %s: %w", gen.ID(), err)
	}

	messages := []llm.Message{
		{Role: "user", Content: "CONTEXT:\n" + string(payload)},
	}

	raw, err := gen.Converse(ctx, messages)
	if err != nil {
		iv.logger.Debug("conversational invocation rejected, retrying direct",
			"generator", gen.ID(),
			"error", err)
		raw, err = gen.GenerateDirect(ctx, string(payload))
		if err != nil {
			return nil, fmt.Errorf("invoking generator %s: %w", gen.ID(), err)
		}
	}

	result := Normalize(raw)
	iv.logger.Debug("generator output normalized",
		"generator", gen.ID(),
		"items", len(result.Items),
		"raw", truncateRaw(raw))
	return result.Items, nil
}

// truncateRaw renders a short diagnostic view of raw generator output.
func truncateRaw(raw any) string {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case MessageContent:
		s = v.MessageText()
	default:
		return fmt.Sprintf("<%T>", raw)
	}
	const max = 300
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// LLMGenerator is a domain generator backed by the capability-routed LLM
// client. The domain prompt is fixed at construction; the generation context
// arrives per call.
type LLMGenerator struct {
	id          GeneratorID
	client      *llm.Client
	prompt      string
	temperature float64
	maxTokens   int
}

// NewLLMGenerator builds a generator for one coaching domain. Temperature is
// pinned low so repeated generations for the same goal stay stable.
func NewLLMGenerator(id GeneratorID, client *llm.Client, prompt string) *LLMGenerator {
	return &LLMGenerator{
		id:          id,
		client:      client,
		prompt:      prompt,
		temperature: 0.2,
		maxTokens:   4096,
	}
}

func (g *LLMGenerator) ID() GeneratorID { return g.id }

// Converse sends the domain prompt as the system message followed by the
// caller's messages. The response is raw model text; Normalize handles the
// rest.
func (g *LLMGenerator) Converse(ctx context.Context, messages []llm.Message) (any, error) {
	req := llm.Request{
		Capability:  string(model.CapabilityGeneration),
		Messages:    append([]llm.Message{{Role: "system", Content: g.prompt}}, messages...),
		Temperature: &g.temperature,
		MaxTokens:   g.maxTokens,
	}
	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// GenerateDirect folds prompt and context into a single user message.
func (g *LLMGenerator) GenerateDirect(ctx context.Context, contextJSON string) (any, error) {
	req := llm.Request{
		Capability: string(model.CapabilityGeneration),
		Messages: []llm.Message{
			{Role: "user", Content: g.prompt + "\n\nCONTEXT:\n" + contextJSON},
		},
		Temperature: &g.temperature,
		MaxTokens:   g.maxTokens,
	}
	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Content, nil
}
