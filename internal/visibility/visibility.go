// Package visibility maintains the ordered subset of registry ids that are
// currently displayed. All functions are pure; persisting a corrected list is
// the caller's job.
package visibility

import "errors"

// ErrWouldEmpty is returned by Toggle when hiding id would leave no metal
// visible. The caller should revert any optimistic UI state.
var ErrWouldEmpty = errors.New("visibility: at least one metal must stay visible")

// Derive sanitizes persisted against the registry: unknown and duplicate ids
// are dropped and the survivors are emitted in registry order. When nothing
// survives and the registry is non-empty, the first registry id is used.
// changed reports whether the result differs from persisted.
func Derive(registryIDs, persisted []string) (ids []string, changed bool) {
	keep := make(map[string]struct{}, len(persisted))
	for _, id := range persisted {
		keep[id] = struct{}{}
	}

	ids = Ordered(registryIDs, keep)
	if len(ids) == 0 && len(registryIDs) > 0 {
		ids = []string{registryIDs[0]}
	}
	return ids, !equal(ids, persisted)
}

// Toggle shows or hides id. Showing adds id when absent and reorders the
// result to match order. Hiding removes id unless it is the last visible
// metal, in which case current is returned unchanged with ErrWouldEmpty.
func Toggle(current, order []string, id string, show bool) ([]string, error) {
	set := make(map[string]struct{}, len(current)+1)
	for _, v := range current {
		set[v] = struct{}{}
	}

	if show {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}

	if len(set) == 0 {
		return current, ErrWouldEmpty
	}
	return Ordered(order, set), nil
}

// Removable reports whether the toggle for id may be switched off. The last
// visible metal is never removable.
func Removable(current []string, id string) bool {
	return !(len(current) == 1 && current[0] == id)
}

// Ordered returns the members of order that are in set, preserving order and
// skipping repeats.
func Ordered(order []string, set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	emitted := make(map[string]struct{}, len(set))
	for _, id := range order {
		if _, ok := set[id]; !ok {
			continue
		}
		if _, dup := emitted[id]; dup {
			continue
		}
		emitted[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is in ids.
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
