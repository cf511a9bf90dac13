package registry

import (
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Platinum":          "platinum",
		"  Rhodium Spot!! ": "rhodium-spot",
		"Ünïcode":           "n-code",
		"---":               "",
		"Copper (LME) 3M":   "copper-lme-3m",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMakeUniqueID(t *testing.T) {
	existing := map[string]struct{}{
		"custom-platinum":   {},
		"custom-platinum-1": {},
	}
	if got := MakeUniqueID("Platinum", existing); got != "custom-platinum-2" {
		t.Errorf("MakeUniqueID(Platinum) = %q, want custom-platinum-2", got)
	}
	if got := MakeUniqueID("!!!", nil); got != "custom-metal" {
		t.Errorf("MakeUniqueID(!!!) = %q, want custom-metal", got)
	}
	if got := MakeUniqueID("Copper", nil); got != "custom-copper" {
		t.Errorf("MakeUniqueID(Copper) = %q, want custom-copper", got)
	}
}

func TestAddAndRemoveCustom(t *testing.T) {
	raw := []string{`garbage`}

	raw, id, err := AddCustom(raw, " Platinum ", " https://example.com/pl ")
	if err != nil {
		t.Fatalf("AddCustom: %v", err)
	}
	if id != "custom-platinum" {
		t.Errorf("id = %q, want custom-platinum", id)
	}
	if len(raw) != 1 {
		t.Fatalf("len(raw) = %d, want 1 (garbage dropped)", len(raw))
	}

	raw, id2, err := AddCustom(raw, "Platinum", "https://example.com/pl2")
	if err != nil {
		t.Fatalf("AddCustom (second): %v", err)
	}
	if id2 != "custom-platinum-1" {
		t.Errorf("second id = %q, want custom-platinum-1", id2)
	}

	metals := ParseCustom(raw)
	if len(metals) != 2 || metals[0].URL != "https://example.com/pl" {
		t.Fatalf("ParseCustom(raw) = %+v", metals)
	}

	raw, found := RemoveCustom(raw, "custom-platinum")
	if !found {
		t.Error("RemoveCustom reported not found")
	}
	metals = ParseCustom(raw)
	if len(metals) != 1 || metals[0].ID != "custom-platinum-1" {
		t.Errorf("after remove = %+v, want only custom-platinum-1", metals)
	}

	if _, found := RemoveCustom(raw, "missing"); found {
		t.Error("RemoveCustom(missing) reported found")
	}
}

func TestAddCustomRejectsBlank(t *testing.T) {
	if _, _, err := AddCustom(nil, "  ", "https://example.com"); !errors.Is(err, ErrInvalidMetal) {
		t.Errorf("blank name: err = %v, want ErrInvalidMetal", err)
	}
	if _, _, err := AddCustom(nil, "Platinum", ""); !errors.Is(err, ErrInvalidMetal) {
		t.Errorf("blank url: err = %v, want ErrInvalidMetal", err)
	}
}

func TestAddCustomAvoidsReservedIDs(t *testing.T) {
	_, id, err := AddCustom(nil, "Platinum", "https://example.com/pl", "custom-platinum")
	if err != nil {
		t.Fatalf("AddCustom: %v", err)
	}
	if id != "custom-platinum-1" {
		t.Errorf("id = %q, want custom-platinum-1", id)
	}
}
