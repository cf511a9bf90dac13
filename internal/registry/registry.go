// Package registry merges the built-in catalogue with user-defined metals
// into one ordered, deduplicated snapshot.
package registry

import (
	"encoding/json"
	"strings"

	"metalwatch/internal/domain"
)

// Registry is an immutable, ordered snapshot of all known metals. The zero
// value is an empty registry.
type Registry struct {
	metals []domain.Metal
	index  map[string]int
}

// Rebuild produces a registry from the built-in metals followed by the
// well-formed entries of customRaw, in persisted order. An entry whose id is
// already present is skipped, so built-in ids always win.
func Rebuild(builtins []domain.Metal, customRaw []string) Registry {
	r := Registry{
		metals: make([]domain.Metal, 0, len(builtins)+len(customRaw)),
		index:  make(map[string]int, len(builtins)+len(customRaw)),
	}
	for _, m := range builtins {
		r.add(m)
	}
	for _, m := range ParseCustom(customRaw) {
		r.add(m)
	}
	return r
}

func (r *Registry) add(m domain.Metal) {
	if _, dup := r.index[m.ID]; dup {
		return
	}
	r.index[m.ID] = len(r.metals)
	r.metals = append(r.metals, m)
}

// Metals returns a copy of the ordered metals.
func (r Registry) Metals() []domain.Metal {
	out := make([]domain.Metal, len(r.metals))
	copy(out, r.metals)
	return out
}

// IDs returns the metal ids in registry order.
func (r Registry) IDs() []string {
	out := make([]string, len(r.metals))
	for i, m := range r.metals {
		out[i] = m.ID
	}
	return out
}

// Lookup returns the metal with the given id.
func (r Registry) Lookup(id string) (domain.Metal, bool) {
	i, ok := r.index[id]
	if !ok {
		return domain.Metal{}, false
	}
	return r.metals[i], true
}

// Contains reports whether id is present.
func (r Registry) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of metals.
func (r Registry) Len() int { return len(r.metals) }

// Select returns the metals whose ids appear in ids, in registry order.
func (r Registry) Select(ids []string) []domain.Metal {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []domain.Metal
	for _, m := range r.metals {
		if _, ok := want[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Added returns the ids of next that are absent from previous, in next order.
func Added(previous, next []string) []string {
	seen := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		seen[id] = struct{}{}
	}
	var out []string
	for _, id := range next {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Custom entries
// ---------------------------------------------------------------------------

// ParseCustom decodes each raw entry independently. Entries that are not JSON
// objects, or whose id, name or url is missing, non-string or blank after
// trimming, are dropped.
func ParseCustom(raw []string) []domain.Metal {
	metals := make([]domain.Metal, 0, len(raw))
	for _, entry := range raw {
		m, ok := parseEntry(entry)
		if !ok {
			continue
		}
		metals = append(metals, m)
	}
	return metals
}

func parseEntry(entry string) (domain.Metal, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(entry), &fields); err != nil {
		return domain.Metal{}, false
	}

	id := stringField(fields, "id")
	name := stringField(fields, "name")
	url := stringField(fields, "url")
	if id == "" || name == "" || url == "" {
		return domain.Metal{}, false
	}
	return domain.Metal{ID: id, Name: name, URL: url, Custom: true}, true
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}
