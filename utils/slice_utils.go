// Package utils holds small generic helpers shared across components.
package utils

// SliceSelect projects each element of a slice through f into a new slice.
func SliceSelect[T any, K any](x []T, f func(x T) K) []K {
	r := make([]K, len(x))
	for i := range x {
		r[i] = f(x[i])
	}
	return r
}

// SliceWhere returns the elements of a slice satisfying f, in order.
func SliceWhere[T any](x []T, f func(x T) bool) []T {
	r := make([]T, 0)
	for i := range x {
		if f(x[i]) {
			r = append(r, x[i])
		}
	}
	return r
}

// SliceContains reports whether a slice holds an element satisfying f.
func SliceContains[T any](x []T, f func(x T) bool) bool {
	for i := range x {
		if f(x[i]) {
			return true
		}
	}
	return false
}
