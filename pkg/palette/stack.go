package palette

import "fmt"

const (
	// NumLayers is the number of color layers in a stack.
	NumLayers = 5

	// NumCodes is the number of distinct stack codes (4^5).
	NumCodes = 1024
)

// StackCode is a base-4, 5-digit number in [0,1023]. Digit k is the
// material deposited at physical print layer k, with digit 0 the least
// significant digit and the first deposited layer.
type StackCode uint16

// Valid reports whether c is inside the stack code range.
func (c StackCode) Valid() bool {
	return c < NumCodes
}

// Digits decomposes the code into its five material digits. Digit 0 is
// layer 0 (the first deposited layer).
func (c StackCode) Digits() [NumLayers]Material {
	var d [NumLayers]Material
	v := uint16(c)
	for k := 0; k < NumLayers; k++ {
		d[k] = Material(v % NumMaterials)
		v /= NumMaterials
	}
	return d
}

// FromDigits composes a stack code from five material digits. It is the
// exact inverse of Digits for every code in [0,1023].
func FromDigits(d [NumLayers]Material) (StackCode, error) {
	var v uint16
	for k := NumLayers - 1; k >= 0; k-- {
		if !d[k].Valid() {
			return 0, fmt.Errorf("digit %d is %d, not a material index", k, d[k])
		}
		v = v*NumMaterials + uint16(d[k])
	}
	return StackCode(v), nil
}

// Reversed returns the code whose digit order is flipped. It is used for
// the mirrored half of a double-sided print, where the stack is deposited
// in the opposite physical order.
func (c StackCode) Reversed() StackCode {
	d := c.Digits()
	var v uint16
	for k := 0; k < NumLayers; k++ {
		v = v*NumMaterials + uint16(d[k])
	}
	return StackCode(v)
}
