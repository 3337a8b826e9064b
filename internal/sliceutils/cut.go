package sliceutils

// Last returns the final n elements of slice, or all of it when n <= 0 or n >= len(slice).
func Last[T any](slice []T, n int) []T {
	if n <= 0 || n >= len(slice) {
		return slice
	}

	return slice[len(slice)-n:]
}
