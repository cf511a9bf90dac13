// Package httpapi provides the HTTP REST API over the metal engine: the
// registry with cached prices, visibility toggles, custom-metal management
// and on-demand refresh.
package httpapi

import (
	"github.com/shopspring/decimal"

	"metalwatch/internal/domain"
	"metalwatch/internal/engine"
)

// MetalJSON is the JSON representation of one registry entry.
type MetalJSON struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	URL       string           `json:"url"`
	Custom    bool             `json:"custom"`
	Visible   bool             `json:"visible"`
	Removable bool             `json:"removable"`
	Price     *string          `json:"price"`             // null when unavailable
	Numeric   *decimal.Decimal `json:"numeric,omitempty"` // set when price parses as a number
	Label     string           `json:"label"`
}

// MetalsResponse is the response for GET /api/metals.
type MetalsResponse struct {
	Version uint64      `json:"version"`
	Metals  []MetalJSON `json:"metals"`
}

// VisibleResponse is the response for the visibility endpoints.
type VisibleResponse struct {
	Visible []string `json:"visible"`
}

// AddMetalRequest is the body of POST /api/metals.
type AddMetalRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AddMetalResponse is the response for POST /api/metals.
type AddMetalResponse struct {
	ID string `json:"id"`
}

// convertView maps an engine view to its JSON form.
func convertView(v engine.MetalView) MetalJSON {
	out := MetalJSON{
		ID:        v.ID,
		Name:      v.Name,
		URL:       v.URL,
		Custom:    v.Custom,
		Visible:   v.Visible,
		Removable: v.Removable,
		Label:     domain.MenuLabel(v.Metal, v.Price, v.HasPrice),
	}
	if v.HasPrice {
		price := v.Price
		out.Price = &price
		if d, err := decimal.NewFromString(price); err == nil {
			out.Numeric = &d
		}
	}
	return out
}
