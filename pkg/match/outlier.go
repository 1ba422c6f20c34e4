package match

import (
	"math"

	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/palette"
)

// OutlierFilter drops lookup-table entries whose measured color is
// implausible for their stack. The heuristic targets one failure mode of
// board photography: glare or shadow can make a cell read as a dark,
// blue-ish color even though its stack contains none of the material that
// actually prints that dark. Such entries would otherwise attract large
// parts of an image during matching.
//
// The reference color and distance are tuned for one printer and material
// set and do not generalize; they are configuration, not constants.
type OutlierFilter struct {
	// Enabled turns the filter on. A disabled filter keeps every entry.
	Enabled bool

	// Reference is the ambiguous dark color that flags an entry as
	// suspect when measured.
	Reference lut.RGB

	// MaxDistance is the Euclidean RGB distance within which a measured
	// color counts as close to Reference.
	MaxDistance float64

	// RequiredMaterial is the slot that must appear somewhere in the
	// stack for a Reference-like measurement to be believable.
	RequiredMaterial palette.Material
}

// DefaultOutlierFilter returns the filter tuned for the given mode's
// material set: colors near a dark blue-ish reference are only believable
// when the stack contains the mode's darkest accent material.
func DefaultOutlierFilter(mode palette.Mode) OutlierFilter {
	f := OutlierFilter{
		Enabled:     true,
		Reference:   lut.RGB{25, 30, 70},
		MaxDistance: 60,
	}
	switch mode {
	case palette.ModeRYBW:
		f.RequiredMaterial = 3 // Blue
	default: // ModeCMYW
		f.RequiredMaterial = 1 // Cyan
	}
	return f
}

// Ambiguous reports whether a measured (color, stack) pair should be
// dropped: the color lies within MaxDistance of the dark reference while
// the decoded stack does not contain the material that should dominate
// such a color.
func (f OutlierFilter) Ambiguous(c lut.RGB, code palette.StackCode) bool {
	if !f.Enabled {
		return false
	}

	dr := float64(c[0]) - float64(f.Reference[0])
	dg := float64(c[1]) - float64(f.Reference[1])
	db := float64(c[2]) - float64(f.Reference[2])
	if math.Sqrt(dr*dr+dg*dg+db*db) > f.MaxDistance {
		return false
	}

	for _, digit := range code.Digits() {
		if digit == f.RequiredMaterial {
			return false
		}
	}
	return true
}
