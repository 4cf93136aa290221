package agent

import "strings"

// GeneratorID identifies a coaching domain generator.
type GeneratorID string

const (
	GeneratorDiet     GeneratorID = "diet"
	GeneratorStrength GeneratorID = "strength"
	GeneratorCardio   GeneratorID = "cardio"
)

// routes maps known goal types to their domain generator set. Order within
// a set fixes the merge order of generator output.
var routes = map[string][]GeneratorID{
	"fat_loss":          {GeneratorDiet, GeneratorCardio},
	"build_muscle":      {GeneratorStrength, GeneratorDiet, GeneratorCardio},
	"healthy_lifestyle": {GeneratorDiet},
	"sculpt_flow":       {GeneratorStrength, GeneratorCardio, GeneratorDiet},
}

// defaultRoute covers unknown goal types: an unrecognized goal still gets a
// full plan rather than an empty one.
var defaultRoute = []GeneratorID{GeneratorDiet, GeneratorStrength, GeneratorCardio}

// Route returns the generator set for a goal type. Matching is
// case-insensitive and whitespace-tolerant; unknown types get the default
// set. The returned slice is a copy and safe to mutate.
func Route(goalType string) []GeneratorID {
	key := strings.ToLower(strings.TrimSpace(goalType))
	ids, ok := routes[key]
	if !ok {
		ids = defaultRoute
	}
	out := make([]GeneratorID, len(ids))
	copy(out, ids)
	return out
}

// KnownGoalTypes returns the goal types with an explicit route, for input
// validation at the API boundary.
func KnownGoalTypes() []string {
	out := make([]string, 0, len(routes))
	for k := range routes {
		out = append(out, k)
	}
	return out
}
