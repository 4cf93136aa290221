// Package agent implements the task-generation pipeline: routing a fitness
// goal to domain generators, invoking them concurrently, normalizing their
// unreliable output into a validated task list, and merging the results.
package agent

// StatusPending is the initial status of every generated task.
const StatusPending = "pending"

// Horizon bounds for generated task due dates, in days from generation time.
const (
	HorizonMinDays = 1
	HorizonMaxDays = 14
)

// Goal identifies a user's fitness objective. It is owned by the external
// store; the pipeline treats it as an immutable input record.
type Goal struct {
	ID          string   `json:"id,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	Type        string   `json:"type"`
	TargetValue *float64 `json:"target_value,omitempty"`
	TargetDate  string   `json:"target_date,omitempty"`
	Status      string   `json:"status,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// UserProfile carries personalization attributes (activity level, injuries,
// unit preference, timezone, availability days). The pipeline never mutates
// it; it is serialized as-is into generator context.
type UserProfile map[string]any

// TaskRef is a compact reference to an existing scheduled task, used for
// near-duplicate hints to generators.
type TaskRef struct {
	Title string `json:"title"`
	DueAt string `json:"due_at"`
}

// ExistingTasksSummary is a compact view of the user's current schedule load.
// It is a soft hint to generators; the pipeline itself only enforces
// deduplication of its own output.
type ExistingTasksSummary struct {
	// DayLoad maps calendar date (YYYY-MM-DD) to scheduled task count.
	DayLoad map[string]int `json:"day_load,omitempty"`
	// Items lists existing tasks for near-duplicate detection.
	Items []TaskRef `json:"items,omitempty"`
}

// Task is the atomic generation output unit.
type Task struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// DueAt is an ISO-8601 UTC timestamp within the 1-14 day horizon.
	DueAt  string `json:"due_at"`
	Status string `json:"status"`
}

// Result is the canonical generator output wrapper.
// Items is always non-nil, even for failed or empty generations.
type Result struct {
	Items []Task `json:"items"`
}

// EmptyResult returns a well-shaped result with zero items.
func EmptyResult() Result {
	return Result{Items: []Task{}}
}
