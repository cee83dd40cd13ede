package types

// Ptr returns a pointer to a copy of the value
// Intended use is to populate optional fields from literals
func Ptr[T any](value T) *T {
	return &value
}
