package utils

// Ptr returns a pointer to a copy of v
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences v, returning the zero value for nil
func Value[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// OptionalClaim returns claims[key] if present and of type T, nil otherwise
func OptionalClaim[T any](claims map[string]any, key string) *T {
	v, ok := claims[key].(T)
	if !ok {
		return nil
	}
	return &v
}

// Redact shortens a secret so it can be correlated in logs without being usable
func Redact(secret string) string {
	if len(secret) <= 8 {
		return secret
	}
	return secret[:8] + "…"
}
