// Package query provides generic predicate-based filtering over collections
// of managed entities. Callers supply a predicate closure; helpers cover the
// common name-based lookups.
package query

// Predicate reports whether an item matches.
type Predicate[T any] func(T) bool

// Filter returns all items matching the predicate. A nil predicate matches
// everything.
func Filter[T any](items []T, p Predicate[T]) []T {
	if p == nil {
		return items
	}
	var out []T
	for _, item := range items {
		if p(item) {
			out = append(out, item)
		}
	}
	return out
}

// First returns the first item matching the predicate.
func First[T any](items []T, p Predicate[T]) (T, bool) {
	for _, item := range items {
		if p == nil || p(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// And combines predicates; all must match.
func And[T any](ps ...Predicate[T]) Predicate[T] {
	return func(item T) bool {
		for _, p := range ps {
			if p != nil && !p(item) {
				return false
			}
		}
		return true
	}
}

// Named is implemented by entities exposing a display name.
type Named interface {
	Name() string
}

// NameIs matches entities whose name equals the given one.
func NameIs[T Named](name string) Predicate[T] {
	return func(item T) bool {
		return item.Name() == name
	}
}
