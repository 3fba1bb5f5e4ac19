package utils

func Ptr[T any](t T) *T {
	return &t
}

// Deref returns the zero value for a nil pointer.
func Deref[T any](t *T) T {
	if t == nil {
		var v T
		return v
	}
	return *t
}
