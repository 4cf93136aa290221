// Package main implements a mock LLM server for local development and e2e
// testing. It serves OpenAI-compatible /v1/chat/completions responses without
// a real model: generation-style requests get a synthesized task plan, chat
// requests get a canned coaching reply. This keeps development fast,
// deterministic, and offline-capable.
//
// Usage:
//
//	mock-llm -port 11434
//
// Point FITAGENT_MODEL_ENDPOINT at http://localhost:11434/v1 to use it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type server struct {
	calls atomic.Int64
}

// domainTitles provides plan content keyed by hints found in the system
// prompt, so each generator gets a distinct, recognizable plan.
var domainTitles = map[string][]string{
	"nutrition": {"Prep 3 high-protein lunches", "Hit 2L of water", "Plan Sunday grocery list"},
	"strength":  {"Squats 3x8 at moderate load", "Push day: bench and rows", "Mobility and core 20min"},
	"cardio":    {"Zone 2 run 30min", "Interval bike 8x1min", "Recovery walk 45min"},
}

// planFor synthesizes an items payload for a generation request, picking the
// domain from the prompt text.
func planFor(req chatRequest) string {
	prompt := ""
	for _, m := range req.Messages {
		prompt += strings.ToLower(m.Content) + "\n"
	}
	titles := domainTitles["cardio"]
	for domain, t := range domainTitles {
		if strings.Contains(prompt, domain) {
			titles = t
			break
		}
	}

	type item struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueAt       string `json:"due_at"`
		Status      string `json:"status"`
	}
	items := make([]item, 0, len(titles))
	for i, title := range titles {
		due := time.Now().UTC().AddDate(0, 0, 2+i*3).Truncate(time.Hour)
		items = append(items, item{
			Title:       title,
			Description: "Mock plan item for local development.",
			DueAt:       due.Format(time.RFC3339),
			Status:      "pending",
		})
	}
	out, _ := json.Marshal(map[string]any{"items": items})
	return string(out)
}

// isGeneration reports whether the request looks like a task-generation call
// rather than a coach chat turn. Generation prompts carry the CONTEXT block.
func isGeneration(req chatRequest) bool {
	for _, m := range req.Messages {
		if strings.Contains(m.Content, "CONTEXT:") {
			return true
		}
	}
	return false
}

func (s *server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	n := s.calls.Add(1)
	content := "You're doing great. Stay consistent this week and check your task list."
	if isGeneration(req) {
		content = planFor(req)
	}

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", n),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 50, TotalTokens: 60},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `{"status": "ok", "calls": %d}`, s.calls.Load())
}

func main() {
	port := flag.Int("port", 11434, "listen port")
	flag.Parse()

	s := &server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.handleCompletions)
	mux.HandleFunc("/health", s.handleHealth)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock-llm listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
