package utils

// Ptr returns a pointer to v.
//
//	temperature := utils.Ptr(0.7)
func Ptr[T any](v T) *T {
	return &v
}
