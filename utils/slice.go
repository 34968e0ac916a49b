package utils

// UniqueSlice keeps the first occurrence of every element, in order. a is
// left untouched.
func UniqueSlice[K comparable](a []K) []K {
	if a == nil {
		return nil
	}
	seen := make(map[K]bool, len(a))
	out := make([]K, 0, len(a))
	for _, v := range a {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
