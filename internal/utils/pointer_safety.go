package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func ValueOr[T comparable](v *T, fallback T) T {
	if v == nil || *v == *new(T) {
		return fallback
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
