package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fitagent/backend/observability"
)

const defaultGeneratorTimeout = 60 * time.Second

// Orchestrator fans a goal out to its routed domain generators, runs them
// concurrently, and merges their normalized output into one deduplicated
// task list.
type Orchestrator struct {
	generators map[GeneratorID]Generator
	invoker    *Invoker
	timeout    time.Duration
	logger     *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithGeneratorTimeout bounds each generator's execution. Zero or negative
// keeps the default.
func WithGeneratorTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithOrchestratorLogger sets the logger used for pipeline diagnostics.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator wires the given generators into a pipeline. Generators are
// looked up by ID at generation time; a routed ID with no registered
// generator is skipped with a warning rather than failing the request.
func NewOrchestrator(generators []Generator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		generators: make(map[GeneratorID]Generator, len(generators)),
		timeout:    defaultGeneratorTimeout,
		logger:     slog.Default(),
	}
	for _, g := range generators {
		o.generators[g.ID()] = g
	}
	for _, opt := range opts {
		opt(o)
	}
	o.invoker = NewInvoker(o.logger)
	return o
}

// Generate runs the full pipeline for one goal: route, fan out, normalize,
// merge, dedupe. It always returns a well-formed result; individual
// generator failures shrink the plan instead of failing it. Duration is
// bounded by the slowest generator, not the sum.
func (o *Orchestrator) Generate(ctx context.Context, profile UserProfile, goal Goal, summary *ExistingTasksSummary) Result {
	goalType := strings.ToLower(strings.TrimSpace(goal.Type))
	start := time.Now()
	defer func() {
		observability.GenerationDuration.WithLabelValues(goalType).Observe(time.Since(start).Seconds())
	}()

	ids := Route(goalType)
	selected := make([]Generator, 0, len(ids))
	for _, id := range ids {
		g, ok := o.generators[id]
		if !ok {
			o.logger.Warn("routed generator not registered, skipping", "generator", id, "goal_type", goalType)
			continue
		}
		selected = append(selected, g)
	}

	// Per-generator result slots keep merge order deterministic regardless
	// of completion order.
	slots := make([][]Task, len(selected))
	var wg sync.WaitGroup
	for i, gen := range selected {
		wg.Add(1)
		go func(i int, gen Generator) {
			defer wg.Done()
			slots[i] = o.runGenerator(ctx, gen, profile, goal, summary)
		}(i, gen)
	}
	wg.Wait()

	merged := mergeTasks(slots)
	observability.TasksGenerated.WithLabelValues(goalType).Add(float64(len(merged)))
	o.logger.Info("generation complete",
		"goal_type", goalType,
		"goal_id", goal.ID,
		"generators", len(selected),
		"tasks", len(merged),
		"duration", time.Since(start))
	return Result{Items: merged}
}

// runGenerator is the per-generator isolation boundary: errors, panics, and
// timeouts all collapse to an empty contribution.
func (o *Orchestrator) runGenerator(ctx context.Context, gen Generator, profile UserProfile, goal Goal, summary *ExistingTasksSummary) (items []Task) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("generator panicked", "generator", gen.ID(), "panic", r)
			observability.GeneratorInvocations.WithLabelValues(string(gen.ID()), "panic").Inc()
			items = nil
		}
	}()

	gctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	items, err := o.invoker.Invoke(gctx, gen, profile, goal, summary)
	if err != nil {
		o.logger.Warn("generator failed, continuing with partial plan",
			"generator", gen.ID(),
			"goal_id", goal.ID,
			"error", err)
		observability.GeneratorInvocations.WithLabelValues(string(gen.ID()), "error").Inc()
		return nil
	}
	if len(items) == 0 {
		observability.ParseFailures.WithLabelValues(string(gen.ID())).Inc()
	}
	observability.GeneratorInvocations.WithLabelValues(string(gen.ID()), "ok").Inc()
	return items
}

// dedupeKey identifies duplicate tasks across generator output: same title
// and same due timestamp. Comparison is exact on the serialized values.
type dedupeKey struct {
	title string
	dueAt string
}

// mergeTasks flattens generator slots in order and drops duplicates,
// keeping the first occurrence.
func mergeTasks(slots [][]Task) []Task {
	merged := make([]Task, 0)
	seen := make(map[dedupeKey]struct{})
	for _, slot := range slots {
		for _, t := range slot {
			k := dedupeKey{title: t.Title, dueAt: t.DueAt}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}
