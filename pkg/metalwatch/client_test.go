package metalwatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/")
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	visible := []string{"gold", "silver"}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/metals", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"version":1,"metals":[
			{"id":"gold","name":"Gold","price":"2345.10","numeric":"2345.1","visible":true},
			{"id":"silver","name":"Silver","price":null,"visible":true}]}`))
	})
	mux.HandleFunc("DELETE /api/visible/{id}", func(w http.ResponseWriter, r *http.Request) {
		if len(visible) == 1 {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"visibility: at least one metal must remain visible"}`))
			return
		}
		kept := visible[:0]
		for _, v := range visible {
			if v != r.PathValue("id") {
				kept = append(kept, v)
			}
		}
		visible = kept
		json.NewEncoder(w).Encode(map[string][]string{"visible": visible})
	})
	mux.HandleFunc("POST /api/metals", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["name"] != "Platinum" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"custom-platinum"}`))
	})
	mux.HandleFunc("POST /api/refresh", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestMetals(t *testing.T) {
	c := NewClient(newServer(t).URL)
	metals, err := c.Metals(context.Background())
	if err != nil {
		t.Fatalf("Metals: %v", err)
	}
	if len(metals) != 2 {
		t.Fatalf("got %d metals", len(metals))
	}
	if metals[0].Price == nil || *metals[0].Price != "2345.10" {
		t.Errorf("gold price = %v", metals[0].Price)
	}
	if metals[0].Numeric == nil || metals[0].Numeric.String() != "2345.1" {
		t.Errorf("gold numeric = %v", metals[0].Numeric)
	}
	if metals[1].Price != nil {
		t.Errorf("silver price should be null")
	}
}

func TestHideAndAPIError(t *testing.T) {
	c := NewClient(newServer(t).URL)
	ctx := context.Background()

	got, err := c.Hide(ctx, "silver")
	if err != nil {
		t.Fatalf("Hide: %v", err)
	}
	if diff := cmp.Diff([]string{"gold"}, got); diff != "" {
		t.Errorf("visible (-want +got):\n%s", diff)
	}

	_, err = c.Hide(ctx, "gold")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message == "" {
		t.Error("expected error message from body")
	}
}

func TestAddMetalAndRefresh(t *testing.T) {
	c := NewClient(newServer(t).URL)
	ctx := context.Background()

	id, err := c.AddMetal(ctx, "Platinum", "https://example.com/pt")
	if err != nil {
		t.Fatalf("AddMetal: %v", err)
	}
	if id != "custom-platinum" {
		t.Errorf("id = %q", id)
	}
	if _, err := c.AddMetal(ctx, "", "x"); err == nil {
		t.Error("expected error for rejected metal")
	}
	if err := c.Refresh(ctx); err != nil {
		t.Errorf("Refresh: %v", err)
	}
}
