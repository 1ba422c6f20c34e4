// Package palette describes the two supported four-material color systems
// and the base-4 stack codes that identify one ordered combination of
// materials across the five color layers of a print.
package palette

import (
	"fmt"
	"image/color"
)

// Mode identifies one of the two supported four-material palettes.
// The zero value is ModeCMYW.
type Mode int

const (
	// ModeCMYW is the cyan/magenta/yellow/white material set.
	ModeCMYW Mode = iota
	// ModeRYBW is the red/yellow/blue/white material set.
	ModeRYBW
)

// NumMaterials is the number of physical material slots. Slot 0 is always
// the white material.
const NumMaterials = 4

// Material identifies a physical material slot in [0,3], or Empty for
// voxels that carry no material at all (transparent or background).
type Material int8

// Empty is the no-material sentinel.
const Empty Material = -1

// Valid reports whether m is a real material slot index.
func (m Material) Valid() bool {
	return m >= 0 && m < NumMaterials
}

var modeNames = map[Mode]string{
	ModeCMYW: "CMYW",
	ModeRYBW: "RYBW",
}

// String returns the short mode name ("CMYW" or "RYBW").
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode name into a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "CMYW", "cmyw":
		return ModeCMYW, nil
	case "RYBW", "rybw":
		return ModeRYBW, nil
	}
	return 0, fmt.Errorf("unknown color mode %q (want CMYW or RYBW)", name)
}

// SlotNames returns the four material slot names in slot order.
// Slot 0 is fixed as "White" in every mode.
func (m Mode) SlotNames() [NumMaterials]string {
	switch m {
	case ModeRYBW:
		return [NumMaterials]string{"White", "Red", "Yellow", "Blue"}
	default: // ModeCMYW
		return [NumMaterials]string{"White", "Cyan", "Magenta", "Yellow"}
	}
}

// Swatches returns the preview RGBA color for each material slot. These are
// display approximations of the filaments, not measured colors.
func (m Mode) Swatches() [NumMaterials]color.RGBA {
	switch m {
	case ModeRYBW:
		return [NumMaterials]color.RGBA{
			{R: 248, G: 248, B: 248, A: 255},
			{R: 212, G: 32, B: 38, A: 255},
			{R: 252, G: 208, B: 22, A: 255},
			{R: 22, G: 62, B: 144, A: 255},
		}
	default: // ModeCMYW
		return [NumMaterials]color.RGBA{
			{R: 248, G: 248, B: 248, A: 255},
			{R: 0, G: 158, B: 224, A: 255},
			{R: 228, G: 0, B: 126, A: 255},
			{R: 255, G: 222, B: 0, A: 255},
		}
	}
}

// SlotIndex looks up a material slot by name.
func (m Mode) SlotIndex(name string) (Material, bool) {
	names := m.SlotNames()
	for i, n := range names {
		if n == name {
			return Material(i), true
		}
	}
	return Empty, false
}

// Corner identifies one corner of the calibration board.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

// String returns the corner name used in operator-facing labels.
func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	}
	return fmt.Sprintf("Corner(%d)", int(c))
}

// CornerMaterial returns the material painted into the given corner marker
// of the calibration board. The layout is intentionally asymmetric: the
// top-left marker is white, the top-right carries material 1, the
// bottom-left material 3 and the bottom-right material 2. The extractor's
// corner labels rely on exactly this arrangement, so it must never change.
func CornerMaterial(c Corner) Material {
	switch c {
	case TopLeft:
		return 0
	case TopRight:
		return 1
	case BottomRight:
		return 2
	case BottomLeft:
		return 3
	}
	return Empty
}

// CornerLabels returns the operator-facing labels for the four corner
// markers in click order (top-left, top-right, bottom-right, bottom-left).
func (m Mode) CornerLabels() [4]string {
	names := m.SlotNames()
	var labels [4]string
	for c := TopLeft; c <= BottomLeft; c++ {
		labels[c] = fmt.Sprintf("%s (%s)", c, names[CornerMaterial(c)])
	}
	return labels
}
