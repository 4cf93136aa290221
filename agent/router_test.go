package agent

import (
	"reflect"
	"testing"
)

func TestRouteKnownTypes(t *testing.T) {
	tests := []struct {
		goalType string
		want     []GeneratorID
	}{
		{"fat_loss", []GeneratorID{GeneratorDiet, GeneratorCardio}},
		{"build_muscle", []GeneratorID{GeneratorStrength, GeneratorDiet, GeneratorCardio}},
		{"healthy_lifestyle", []GeneratorID{GeneratorDiet}},
		{"sculpt_flow", []GeneratorID{GeneratorStrength, GeneratorCardio, GeneratorDiet}},
	}
	for _, tt := range tests {
		t.Run(tt.goalType, func(t *testing.T) {
			if got := Route(tt.goalType); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Route(%q) = %v, want %v", tt.goalType, got, tt.want)
			}
		})
	}
}

func TestRouteNormalizesInput(t *testing.T) {
	want := Route("fat_loss")
	for _, input := range []string{"FAT_LOSS", "Fat_Loss", "  fat_loss  "} {
		if got := Route(input); !reflect.DeepEqual(got, want) {
			t.Errorf("Route(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestRouteSingleGeneratorGoal(t *testing.T) {
	got := Route("healthy_lifestyle")
	if len(got) != 1 || got[0] != GeneratorDiet {
		t.Errorf("Route(healthy_lifestyle) = %v, want only %v", got, GeneratorDiet)
	}
}

func TestRouteUnknownGetsDefault(t *testing.T) {
	want := []GeneratorID{GeneratorDiet, GeneratorStrength, GeneratorCardio}
	for _, input := range []string{"run_marathon", "", "???"} {
		got := Route(input)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Route(%q) = %v, want default %v", input, got, want)
		}
	}
}

func TestRouteNeverEmpty(t *testing.T) {
	for _, goalType := range append(KnownGoalTypes(), "unknown_type") {
		if len(Route(goalType)) == 0 {
			t.Errorf("Route(%q) returned no generators", goalType)
		}
	}
}

func TestRouteReturnsCopy(t *testing.T) {
	first := Route("build_muscle")
	first[0] = GeneratorID("mutated")
	if second := Route("build_muscle"); second[0] != GeneratorStrength {
		t.Error("Route() shares backing array with callers")
	}
}
