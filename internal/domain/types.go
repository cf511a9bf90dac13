// Package domain defines the core value types shared across metalwatch:
// tracked metals, the built-in catalogue, and the settings keys the engine
// reads and writes.
package domain

import "time"

// ---------------------------------------------------------------------------
// Settings keys
// ---------------------------------------------------------------------------

const (
	// KeyCustomMetals holds one serialized JSON record per user-defined metal.
	KeyCustomMetals = "custom-metals"

	// KeyVisibleMetals holds the ordered ids currently displayed.
	KeyVisibleMetals = "visible-metals"
)

// DefaultRefreshInterval is the period of the full-registry refresh cycle.
const DefaultRefreshInterval = 5 * time.Minute

// ---------------------------------------------------------------------------
// Metal
// ---------------------------------------------------------------------------

// Metal is a tracked commodity. Values are never mutated after construction;
// a changed metal is represented by rebuilding the registry.
type Metal struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Custom bool   `json:"custom"`
}

// Builtins returns the fixed catalogue of metals in display order. A fresh
// slice is returned on every call.
func Builtins() []Metal {
	return []Metal{
		{ID: "gold", Name: "Gold", URL: "https://www.google.com/finance/quote/GCW00:COMEX"},
		{ID: "silver", Name: "Silver", URL: "https://www.google.com/finance/quote/SIW00:COMEX"},
	}
}

// IsBuiltinID reports whether id belongs to the built-in catalogue.
func IsBuiltinID(id string) bool {
	for _, m := range Builtins() {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

// PanelLabel renders the compact "Gold 2345.10$" form, or "Gold ..." when no
// price is available.
func PanelLabel(m Metal, price string, ok bool) string {
	if !ok || price == "" {
		return m.Name + " ..."
	}
	return m.Name + " " + price + "$"
}

// MenuLabel renders the "Gold: 2345.10$" form, or "Gold: ..." when no price
// is available.
func MenuLabel(m Metal, price string, ok bool) string {
	if !ok || price == "" {
		return m.Name + ": ..."
	}
	return m.Name + ": " + price + "$"
}
