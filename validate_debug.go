//go:build debug_dynmem

package dynmem

import "encoding/binary"

const (
	// DebugFillEnabled reports whether freed payload regions are overwritten
	// with freedFillPattern. It is true only when built with the debug_dynmem
	// build tag.
	DebugFillEnabled = true

	// freedFillPattern is a 4-byte pattern written across freed payload regions
	// so that use-after-free bugs surface as recognizable garbage
	freedFillPattern uint32 = 0x6B3FA9D2
)

// WriteFillPattern overwrites the provided payload region with an
// easy-to-identify marker. This method no-ops unless the debug_dynmem build
// tag is present.
func WriteFillPattern(data []byte) {
	var i int
	for ; i+4 <= len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], freedFillPattern)
	}
	for ; i < len(data); i++ {
		data[i] = byte(freedFillPattern & 0xFF)
	}
}

// CheckFillPattern verifies that the marker written by WriteFillPattern is
// still present across the provided payload region. It returns true if the
// pattern is intact and false otherwise. This method always returns true
// unless the debug_dynmem build tag is present.
func CheckFillPattern(data []byte) bool {
	var i int
	for ; i+4 <= len(data); i += 4 {
		if binary.LittleEndian.Uint32(data[i:]) != freedFillPattern {
			return false
		}
	}
	for ; i < len(data); i++ {
		if data[i] != byte(freedFillPattern&0xFF) {
			return false
		}
	}

	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_dynmem build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the debug_dynmem build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	err := CheckPow2[T](value, name)
	if err != nil {
		panic(err)
	}
}
