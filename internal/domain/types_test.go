package domain

import "testing"

func TestBuiltinsOrder(t *testing.T) {
	b := Builtins()
	if len(b) != 2 {
		t.Fatalf("len(Builtins()) = %d, want 2", len(b))
	}
	if b[0].ID != "gold" || b[1].ID != "silver" {
		t.Errorf("Builtins() ids = [%s %s], want [gold silver]", b[0].ID, b[1].ID)
	}
	for _, m := range b {
		if m.Custom {
			t.Errorf("builtin %q marked custom", m.ID)
		}
		if m.URL == "" || m.Name == "" {
			t.Errorf("builtin %q has blank fields: %+v", m.ID, m)
		}
	}

	// Mutating the returned slice must not leak into later calls.
	b[0].Name = "changed"
	if Builtins()[0].Name != "Gold" {
		t.Error("Builtins() returned shared backing storage")
	}
}

func TestIsBuiltinID(t *testing.T) {
	if !IsBuiltinID("gold") || !IsBuiltinID("silver") {
		t.Error("IsBuiltinID should accept gold and silver")
	}
	if IsBuiltinID("custom-platinum") {
		t.Error("IsBuiltinID(custom-platinum) = true, want false")
	}
}

func TestLabels(t *testing.T) {
	gold := Metal{ID: "gold", Name: "Gold"}

	tests := []struct {
		price string
		ok    bool
		panel string
		menu  string
	}{
		{"2345.10", true, "Gold 2345.10$", "Gold: 2345.10$"},
		{"", false, "Gold ...", "Gold: ..."},
		{"", true, "Gold ...", "Gold: ..."},
	}
	for _, tt := range tests {
		if got := PanelLabel(gold, tt.price, tt.ok); got != tt.panel {
			t.Errorf("PanelLabel(%q, %v) = %q, want %q", tt.price, tt.ok, got, tt.panel)
		}
		if got := MenuLabel(gold, tt.price, tt.ok); got != tt.menu {
			t.Errorf("MenuLabel(%q, %v) = %q, want %q", tt.price, tt.ok, got, tt.menu)
		}
	}
}
