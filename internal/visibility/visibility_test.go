package visibility

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var goldSilver = []string{"gold", "silver"}

func TestDeriveScenario(t *testing.T) {
	ids, changed := Derive(goldSilver, []string{"silver", "silver", "bogus"})

	if diff := cmp.Diff([]string{"silver"}, ids); diff != "" {
		t.Errorf("Derive() mismatch (-want +got):\n%s", diff)
	}
	if !changed {
		t.Error("changed = false, want true (write-back required)")
	}
	if Removable(ids, "silver") {
		t.Error("Removable(silver) = true, want false for the only visible metal")
	}
	if !Removable(ids, "gold") {
		t.Error("Removable(gold) = false, want true")
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		registry  []string
		persisted []string
		want      []string
		changed   bool
	}{
		{"valid unchanged", goldSilver, []string{"gold", "silver"}, []string{"gold", "silver"}, false},
		{"empty falls back", goldSilver, nil, []string{"gold"}, true},
		{"all invalid falls back", goldSilver, []string{"x", "y"}, []string{"gold"}, true},
		{"out of order", goldSilver, []string{"silver", "gold"}, []string{"gold", "silver"}, true},
		{"empty registry", nil, []string{"gold"}, []string{}, true},
		{"empty registry empty input", nil, nil, []string{}, false},
		{"single valid", goldSilver, []string{"silver"}, []string{"silver"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Derive(tt.registry, tt.persisted)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Derive() mismatch (-want +got):\n%s", diff)
			}
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}
		})
	}
}

// TestDeriveProperties checks the invariants over random inputs: non-empty
// whenever the registry is, no duplicates, registry-valid, registry-ordered,
// and idempotent.
func TestDeriveProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pool := []string{"gold", "silver", "custom-a", "custom-b", "bogus", "other"}

	for i := 0; i < 2000; i++ {
		var registry []string
		for _, id := range pool[:4] {
			if rng.Intn(3) > 0 {
				registry = append(registry, id)
			}
		}
		persisted := make([]string, rng.Intn(6))
		for j := range persisted {
			persisted[j] = pool[rng.Intn(len(pool))]
		}

		got, _ := Derive(registry, persisted)

		if len(registry) > 0 && len(got) == 0 {
			t.Fatalf("Derive(%v, %v) is empty", registry, persisted)
		}
		pos := make(map[string]int, len(registry))
		for k, id := range registry {
			pos[id] = k
		}
		last := -1
		for _, id := range got {
			p, ok := pos[id]
			if !ok {
				t.Fatalf("Derive(%v, %v) = %v contains unknown %q", registry, persisted, got, id)
			}
			if p <= last {
				t.Fatalf("Derive(%v, %v) = %v not registry-ordered or has duplicates", registry, persisted, got)
			}
			last = p
		}

		again, changed := Derive(registry, got)
		if diff := cmp.Diff(got, again); diff != "" {
			t.Fatalf("Derive not idempotent for %v, %v (-first +second):\n%s", registry, persisted, diff)
		}
		if changed {
			t.Fatalf("Derive(%v, %v) reported change on sanitized input", registry, got)
		}
	}
}

func TestToggleShow(t *testing.T) {
	order := []string{"gold", "silver", "custom-pt"}

	got, err := Toggle([]string{"custom-pt"}, order, "gold", true)
	if err != nil {
		t.Fatalf("Toggle show: %v", err)
	}
	if diff := cmp.Diff([]string{"gold", "custom-pt"}, got); diff != "" {
		t.Errorf("Toggle show mismatch (-want +got):\n%s", diff)
	}

	again, err := Toggle(got, order, "gold", true)
	if err != nil {
		t.Fatalf("Toggle show twice: %v", err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("showing twice produced a change (-want +got):\n%s", diff)
	}
}

func TestToggleHide(t *testing.T) {
	got, err := Toggle(goldSilver, goldSilver, "gold", false)
	if err != nil {
		t.Fatalf("Toggle hide: %v", err)
	}
	if diff := cmp.Diff([]string{"silver"}, got); diff != "" {
		t.Errorf("Toggle hide mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleRejectsEmpty(t *testing.T) {
	current := []string{"silver"}
	got, err := Toggle(current, goldSilver, "silver", false)
	if !errors.Is(err, ErrWouldEmpty) {
		t.Fatalf("err = %v, want ErrWouldEmpty", err)
	}
	if diff := cmp.Diff(current, got); diff != "" {
		t.Errorf("rejected toggle changed the set (-want +got):\n%s", diff)
	}
}

func TestRemovable(t *testing.T) {
	if !Removable(goldSilver, "gold") {
		t.Error("Removable with two visible should be true")
	}
	if Removable([]string{"gold"}, "gold") {
		t.Error("Removable(only member) should be false")
	}
}

func TestContains(t *testing.T) {
	if !Contains(goldSilver, "silver") || Contains(goldSilver, "x") {
		t.Error("Contains mismatch")
	}
}
