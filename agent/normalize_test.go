package agent

import (
	"reflect"
	"testing"
)

type fakeItemsResult struct {
	items []Task
}

func (f fakeItemsResult) TaskItems() []Task { return f.items }

type fakeMessage struct {
	text string
}

func (f fakeMessage) MessageText() string { return f.text }

func TestNormalizeStructuredShapes(t *testing.T) {
	want := []Task{{Title: "Run 5k", DueAt: "2025-09-03T07:00:00Z", Status: "pending"}}

	tests := []struct {
		name string
		raw  any
	}{
		{"canonical result", Result{Items: []Task{{Title: "Run 5k", DueAt: "2025-09-03T07:00:00Z", Status: "pending"}}}},
		{"result pointer", &Result{Items: []Task{{Title: "Run 5k", DueAt: "2025-09-03T07:00:00Z", Status: "pending"}}}},
		{"bare slice", []Task{{Title: "Run 5k", DueAt: "2025-09-03T07:00:00Z", Status: "pending"}}},
		{"items provider", fakeItemsResult{items: []Task{{Title: "Run 5k", DueAt: "2025-09-03T07:00:00Z", Status: "pending"}}}},
		{"generic map", map[string]any{"items": []any{map[string]any{"title": "Run 5k", "due_at": "2025-09-03T07:00:00Z", "status": "pending"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if !reflect.DeepEqual(got.Items, want) {
				t.Errorf("Normalize() = %+v, want %+v", got.Items, want)
			}
		})
	}
}

func TestNormalizeTextShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		wantCount int
		wantTitle string
	}{
		{
			name:      "clean JSON string",
			raw:       `{"items": [{"title": "Meal prep", "due_at": "2025-09-04T18:00:00Z"}]}`,
			wantCount: 1,
			wantTitle: "Meal prep",
		},
		{
			name:      "fenced JSON",
			raw:       "Here's your plan:\n```json\n{\"items\": [{\"title\": \"Swim 30min\"}]}\n```\nEnjoy!",
			wantCount: 1,
			wantTitle: "Swim 30min",
		},
		{
			name:      "JSON embedded in prose",
			raw:       `Sure! {"items": [{"title": "Squats 3x8"}]} Let me know how it goes.`,
			wantCount: 1,
			wantTitle: "Squats 3x8",
		},
		{
			name:      "message wrapper",
			raw:       fakeMessage{text: `{"items": [{"title": "Rest day walk"}]}`},
			wantCount: 1,
			wantTitle: "Rest day walk",
		},
		{
			name:      "byte slice",
			raw:       []byte(`{"items": [{"title": "Stretching"}]}`),
			wantCount: 1,
			wantTitle: "Stretching",
		},
		{name: "garbage text", raw: "I'm sorry, I can't do that.", wantCount: 0},
		{name: "empty string", raw: "", wantCount: 0},
		{name: "nil input", raw: nil, wantCount: 0},
		{name: "object without items", raw: `{"tasks": []}`, wantCount: 0},
		{name: "items not a list", raw: `{"items": "none"}`, wantCount: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got.Items == nil {
				t.Fatal("Items is nil, want non-nil")
			}
			if len(got.Items) != tt.wantCount {
				t.Fatalf("len(Items) = %d, want %d", len(got.Items), tt.wantCount)
			}
			if tt.wantCount > 0 && got.Items[0].Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Items[0].Title, tt.wantTitle)
			}
		})
	}
}

func TestNormalizeSanitizes(t *testing.T) {
	got := Normalize(Result{Items: []Task{
		{Title: "  Run 5k  ", DueAt: "2025-09-03T07:00:00Z"},
		{Title: "", Description: "no title, dropped"},
		{Title: "   ", Description: "blank title, dropped"},
		{Title: "Meal prep", Status: "completed"},
	}})

	if len(got.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(got.Items))
	}
	if got.Items[0].Title != "Run 5k" {
		t.Errorf("Title = %q, want trimmed %q", got.Items[0].Title, "Run 5k")
	}
	if got.Items[0].Status != StatusPending {
		t.Errorf("Status = %q, want default %q", got.Items[0].Status, StatusPending)
	}
	if got.Items[1].Status != "completed" {
		t.Errorf("explicit status overwritten: %q", got.Items[1].Status)
	}
}

func TestNormalizeUnknownStruct(t *testing.T) {
	// A decoder's anonymous struct should round-trip through JSON.
	raw := struct {
		Items []Task `json:"items"`
	}{Items: []Task{{Title: "Cycle 45min"}}}

	got := Normalize(raw)
	if len(got.Items) != 1 || got.Items[0].Title != "Cycle 45min" {
		t.Errorf("Normalize(struct) = %+v", got.Items)
	}
}
