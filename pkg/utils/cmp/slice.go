package cmp

// true if a and b have same values in same order.
func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(x T, y T) bool { return x == y })
}

// true if a and b are same length and eq holds for each pair of elements.
func SliceEqWith[T any, U any](a []T, b []U, eq func(T, U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if !eq(a[nth], b[nth]) {
			return false
		}
	}
	return true
}

// true if a and b have same values, ignoring order.
//
// Each value is matched at most once, so duplicated values are
// counted on both sides.
func SliceContentEq[T comparable](a []T, b []T) bool {
	return SliceContentEqWith(a, b, func(x T, y T) bool { return x == y })
}

func SliceContentEqWith[T any, U any](a []T, b []U, eq func(T, U) bool) bool {
	if len(a) != len(b) {
		return false
	}

	used := make([]bool, len(b))
AHEAD:
	for _, x := range a {
		for nth, y := range b {
			if used[nth] || !eq(x, y) {
				continue
			}
			used[nth] = true
			continue AHEAD
		}
		return false
	}
	return true
}
