package agent

import (
	"encoding/json"
	"strings"

	"github.com/fitagent/backend/llm"
)

// ItemsProvider is implemented by generator outputs that can export the
// canonical task list directly, without round-tripping through text.
type ItemsProvider interface {
	TaskItems() []Task
}

// MessageContent is implemented by conversational outputs whose textual
// content may embed a JSON payload.
type MessageContent interface {
	MessageText() string
}

// Normalize converts any generator output shape into a well-formed Result.
// It never returns an error: unusable input degrades to an empty result so
// that one malformed generator cannot poison a merge.
//
// Recognition order: canonical Result values pass through, structured shapes
// exporting an items list are decoded directly, message-like values have
// their text extracted, and plain text goes through JSON recovery (direct
// parse, then fenced/embedded object extraction).
func Normalize(raw any) Result {
	switch v := raw.(type) {
	case nil:
		return EmptyResult()
	case Result:
		return Result{Items: sanitizeItems(v.Items)}
	case *Result:
		if v == nil {
			return EmptyResult()
		}
		return Result{Items: sanitizeItems(v.Items)}
	case []Task:
		return Result{Items: sanitizeItems(v)}
	case ItemsProvider:
		return Result{Items: sanitizeItems(v.TaskItems())}
	case MessageContent:
		return normalizeText(v.MessageText())
	case string:
		return normalizeText(v)
	case []byte:
		return normalizeText(string(v))
	case map[string]any:
		return fromMap(v)
	default:
		// Struct-shaped outputs from decoders we don't know about: round-trip
		// through JSON and retry as a generic map.
		b, err := json.Marshal(v)
		if err != nil {
			return EmptyResult()
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return EmptyResult()
		}
		return fromMap(m)
	}
}

// fromMap decodes a generic object that is expected to carry an "items" list.
func fromMap(m map[string]any) Result {
	items, ok := m["items"]
	if !ok {
		return EmptyResult()
	}
	b, err := json.Marshal(items)
	if err != nil {
		return EmptyResult()
	}
	var tasks []Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return EmptyResult()
	}
	return Result{Items: sanitizeItems(tasks)}
}

// normalizeText recovers a task list from free-form model text. Models wrap
// JSON in prose and code fences more often than they return it clean, so a
// direct parse is tried first and extraction second.
func normalizeText(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyResult()
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err == nil {
		return fromMap(m)
	}

	extracted := llm.ExtractJSON(text)
	if extracted == "" {
		return EmptyResult()
	}
	if err := json.Unmarshal([]byte(extracted), &m); err != nil {
		return EmptyResult()
	}
	return fromMap(m)
}

// sanitizeItems drops items without a title and fills the default status.
// The returned slice is always non-nil.
func sanitizeItems(items []Task) []Task {
	out := make([]Task, 0, len(items))
	for _, t := range items {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			continue
		}
		if t.Status == "" {
			t.Status = StatusPending
		}
		out = append(out, t)
	}
	return out
}
