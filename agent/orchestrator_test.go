package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitagent/backend/llm"
)

// stubGenerator is a scriptable Generator for pipeline tests.
type stubGenerator struct {
	id            GeneratorID
	delay         time.Duration
	out           any
	converseErr   error
	directOut     any
	directErr     error
	panics        bool
	converseCalls atomic.Int32
	directCalls   atomic.Int32
}

func (s *stubGenerator) ID() GeneratorID { return s.id }

func (s *stubGenerator) Converse(ctx context.Context, messages []llm.Message) (any, error) {
	s.converseCalls.Add(1)
	if s.panics {
		panic("stub generator exploded")
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.converseErr != nil {
		return nil, s.converseErr
	}
	return s.out, nil
}

func (s *stubGenerator) GenerateDirect(ctx context.Context, contextJSON string) (any, error) {
	s.directCalls.Add(1)
	if s.directErr != nil {
		return nil, s.directErr
	}
	return s.directOut, nil
}

func tasks(titles ...string) Result {
	items := make([]Task, 0, len(titles))
	for _, title := range titles {
		items = append(items, Task{Title: title, DueAt: "2025-09-05T07:00:00Z", Status: StatusPending})
	}
	return Result{Items: items}
}

func titlesOf(items []Task) []string {
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = t.Title
	}
	return out
}

func TestGenerateMergesInRouteOrder(t *testing.T) {
	// Completion order is inverted relative to route order; the merge must
	// still follow the route.
	orch := NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorStrength, delay: 60 * time.Millisecond, out: tasks("Squats 3x8")},
		&stubGenerator{id: GeneratorDiet, delay: 30 * time.Millisecond, out: tasks("Meal prep")},
		&stubGenerator{id: GeneratorCardio, out: tasks("Run 5k")},
	})

	got := orch.Generate(context.Background(), UserProfile{}, Goal{Type: "build_muscle"}, nil)
	want := []string{"Squats 3x8", "Meal prep", "Run 5k"}
	gotTitles := titlesOf(got.Items)
	if len(gotTitles) != len(want) {
		t.Fatalf("titles = %v, want %v", gotTitles, want)
	}
	for i := range want {
		if gotTitles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, gotTitles[i], want[i])
		}
	}
}

func TestGenerateDedupes(t *testing.T) {
	shared := Task{Title: "Hydrate", DueAt: "2025-09-05T08:00:00Z", Status: StatusPending}
	first := shared
	first.Description = "from diet"
	second := shared
	second.Description = "from cardio"

	orch := NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorDiet, out: Result{Items: []Task{first, first}}},
		&stubGenerator{id: GeneratorCardio, out: Result{Items: []Task{second, {Title: "Run 5k", DueAt: "2025-09-06T07:00:00Z", Status: StatusPending}}}},
	})

	got := orch.Generate(context.Background(), UserProfile{}, Goal{Type: "fat_loss"}, nil)
	if len(got.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2: %v", len(got.Items), titlesOf(got.Items))
	}
	if got.Items[0].Description != "from diet" {
		t.Errorf("dedupe kept %q, want first occurrence", got.Items[0].Description)
	}

	// Same title on a different day is not a duplicate.
	dayShift := shared
	dayShift.DueAt = "2025-09-07T08:00:00Z"
	orch = NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorDiet, out: Result{Items: []Task{shared}}},
		&stubGenerator{id: GeneratorCardio, out: Result{Items: []Task{dayShift}}},
	})
	got = orch.Generate(context.Background(), UserProfile{}, Goal{Type: "fat_loss"}, nil)
	if len(got.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2 for distinct due dates", len(got.Items))
	}
}

func TestGeneratePartialFailure(t *testing.T) {
	boom := errors.New("boom")
	orch := NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorDiet, converseErr: boom, directErr: boom},
		&stubGenerator{id: GeneratorStrength, panics: true},
		&stubGenerator{id: GeneratorCardio, out: tasks("Run 5k")},
	})

	got := orch.Generate(context.Background(), UserProfile{}, Goal{Type: "build_muscle"}, nil)
	if len(got.Items) != 1 || got.Items[0].Title != "Run 5k" {
		t.Errorf("Items = %v, want only the healthy generator's output", titlesOf(got.Items))
	}
}

func TestGenerateConventionFallback(t *testing.T) {
	gen := &stubGenerator{
		id:          GeneratorDiet,
		converseErr: errors.New("unsupported message form"),
		directOut:   tasks("Meal prep Sunday"),
	}
	orch := NewOrchestrator([]Generator{gen})

	got := orch.Generate(context.Background(), UserProfile{}, Goal{Type: "healthy_lifestyle"}, nil)
	if len(got.Items) != 1 || got.Items[0].Title != "Meal prep Sunday" {
		t.Fatalf("Items = %v, want direct-call output", titlesOf(got.Items))
	}
	if gen.converseCalls.Load() != 1 || gen.directCalls.Load() != 1 {
		t.Errorf("calls = (%d converse, %d direct), want (1, 1)",
			gen.converseCalls.Load(), gen.directCalls.Load())
	}
}

func TestGenerateRunsConcurrently(t *testing.T) {
	const delay = 100 * time.Millisecond
	orch := NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorDiet, delay: delay, out: tasks("A")},
		&stubGenerator{id: GeneratorStrength, delay: delay, out: tasks("B")},
		&stubGenerator{id: GeneratorCardio, delay: delay, out: tasks("C")},
	})

	start := time.Now()
	got := orch.Generate(context.Background(), UserProfile{}, Goal{Type: "build_muscle"}, nil)
	elapsed := time.Since(start)

	if len(got.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(got.Items))
	}
	if elapsed < delay {
		t.Errorf("elapsed = %v, faster than a single generator", elapsed)
	}
	if elapsed > 3*delay {
		t.Errorf("elapsed = %v, generators appear to run sequentially", elapsed)
	}
}

func TestGenerateTimeoutIsolated(t *testing.T) {
	orch := NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorDiet, delay: time.Second, out: tasks("never"), directErr: errors.New("no direct form")},
		&stubGenerator{id: GeneratorCardio, out: tasks("Run 5k")},
	}, WithGeneratorTimeout(50*time.Millisecond))

	start := time.Now()
	got := orch.Generate(context.Background(), UserProfile{}, Goal{Type: "fat_loss"}, nil)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, timeout not applied", elapsed)
	}
	if len(got.Items) != 1 || got.Items[0].Title != "Run 5k" {
		t.Errorf("Items = %v, want only the fast generator's output", titlesOf(got.Items))
	}
}

func TestGenerateSkipsUnregistered(t *testing.T) {
	orch := NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorDiet, out: tasks("Meal prep")},
	})

	got := orch.Generate(context.Background(), UserProfile{}, Goal{Type: "build_muscle"}, nil)
	if len(got.Items) != 1 || got.Items[0].Title != "Meal prep" {
		t.Errorf("Items = %v, want only registered generator output", titlesOf(got.Items))
	}
}

func TestGenerateFullFanOut(t *testing.T) {
	orch := NewOrchestrator([]Generator{
		&stubGenerator{id: GeneratorDiet, out: tasks("D1", "D2", "D3")},
		&stubGenerator{id: GeneratorStrength, out: tasks("S1", "S2", "S3")},
		&stubGenerator{id: GeneratorCardio, out: tasks("C1", "C2", "C3")},
	})

	got := orch.Generate(context.Background(), UserProfile{"activity_level": "moderate"}, Goal{Type: "build_muscle"}, nil)
	if len(got.Items) != 9 {
		t.Errorf("len(Items) = %d, want 9", len(got.Items))
	}
	for _, item := range got.Items {
		if item.Status != StatusPending {
			t.Errorf("task %q status = %q, want %q", item.Title, item.Status, StatusPending)
		}
	}
}
