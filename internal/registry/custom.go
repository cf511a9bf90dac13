package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"metalwatch/internal/domain"
)

// ErrInvalidMetal is returned when a new custom metal has a blank name or url.
var ErrInvalidMetal = errors.New("registry: name and url are required")

// customRecord is the persisted form of one custom metal.
type customRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Slugify lower-cases value and collapses every run of characters outside
// [a-z0-9] into a single dash, trimming dashes at both ends.
func Slugify(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// MakeUniqueID derives "custom-<slug>" from name, appending "-1", "-2", ...
// until the candidate is not in existing. Built-in ids are always reserved.
func MakeUniqueID(name string, existing map[string]struct{}) string {
	base := Slugify(name)
	if base == "" {
		base = "metal"
	}
	taken := func(id string) bool {
		_, ok := existing[id]
		return ok || domain.IsBuiltinID(id)
	}

	candidate := "custom-" + base
	for suffix := 1; taken(candidate); suffix++ {
		candidate = fmt.Sprintf("custom-%s-%d", base, suffix)
	}
	return candidate
}

// SerializeCustom encodes each metal as its own compact JSON record.
func SerializeCustom(metals []domain.Metal) []string {
	out := make([]string, 0, len(metals))
	for _, m := range metals {
		data, err := json.Marshal(customRecord{ID: m.ID, Name: m.Name, URL: m.URL})
		if err != nil {
			continue
		}
		out = append(out, string(data))
	}
	return out
}

// AddCustom appends a new metal to the persisted list and returns the updated
// list together with the generated id. The id avoids every existing custom id
// and every id in reserved. Malformed entries already present in raw are
// dropped from the result.
func AddCustom(raw []string, name, url string, reserved ...string) ([]string, string, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" || url == "" {
		return nil, "", ErrInvalidMetal
	}

	metals := ParseCustom(raw)
	existing := make(map[string]struct{}, len(metals)+len(reserved))
	for _, m := range metals {
		existing[m.ID] = struct{}{}
	}
	for _, id := range reserved {
		existing[id] = struct{}{}
	}

	id := MakeUniqueID(name, existing)
	metals = append(metals, domain.Metal{ID: id, Name: name, URL: url, Custom: true})
	return SerializeCustom(metals), id, nil
}

// RemoveCustom returns raw without the entry for id. The boolean reports
// whether such an entry existed.
func RemoveCustom(raw []string, id string) ([]string, bool) {
	metals := ParseCustom(raw)
	kept := metals[:0]
	found := false
	for _, m := range metals {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	return SerializeCustom(kept), found
}
