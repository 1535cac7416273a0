package dynmem

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// ZeroBytes clears every byte of data. Arena memory gets reused, so regions
// handed out under an auto-zero policy must be cleared explicitly.
func ZeroBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
