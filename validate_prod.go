//go:build !debug_dynmem

package dynmem

// DebugFillEnabled reports whether freed payload regions are overwritten
// with a fill pattern. It is true only when built with the debug_dynmem
// build tag.
const DebugFillEnabled = false

// WriteFillPattern overwrites the provided payload region with an
// easy-to-identify marker. This method no-ops unless the debug_dynmem build
// tag is present.
func WriteFillPattern(data []byte) {
}

// CheckFillPattern verifies that the marker written by WriteFillPattern is
// still present across the provided payload region. It returns true if the
// pattern is intact and false otherwise. This method always returns true
// unless the debug_dynmem build tag is present.
func CheckFillPattern(data []byte) bool {
	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_dynmem build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the debug_dynmem build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
}
