package voxel

import (
	"fmt"
	"image"
	"math"

	"colorstack3d/pkg/palette"
)

// StructureMode selects the physical layout of the printed part.
type StructureMode int

const (
	// SingleSided prints the five color layers on a white backing plate.
	SingleSided StructureMode = iota
	// DoubleSided prints the color layers, a white spacer, and a mirrored
	// copy of the color layers so the image reads from both faces.
	DoubleSided
)

// ParseStructureMode converts a mode name into a StructureMode.
func ParseStructureMode(name string) (StructureMode, error) {
	switch name {
	case "single", "":
		return SingleSided, nil
	case "double":
		return DoubleSided, nil
	}
	return 0, fmt.Errorf("unknown structure mode %q (want single or double)", name)
}

// alphaThreshold is the alpha value below which a source pixel is treated
// as transparent and produces no material at all.
const alphaThreshold = 128

// Builder assembles a material volume from a matched-stack image. It is a
// pure function of its inputs: identical inputs always produce identical
// volumes.
type Builder struct {
	// Structure selects single- or double-sided layout.
	Structure StructureMode

	// AutoBackgroundRemoval treats pixels close to the top-left pixel's
	// color as transparent, in addition to the alpha mask.
	AutoBackgroundRemoval bool

	// BackgroundTolerance is the Euclidean RGB distance within which a
	// pixel counts as background when AutoBackgroundRemoval is on.
	BackgroundTolerance int

	// BackingThicknessMm is the physical thickness of the white backing
	// (single-sided) or spacer (double-sided) between the color layers.
	BackingThicknessMm float64

	// LayerHeightMm is the print layer height used to convert the backing
	// thickness into a layer count.
	LayerHeightMm float64
}

// SpacerLayers returns the number of backing/spacer layers, never less
// than one.
func (b *Builder) SpacerLayers() int {
	n := int(math.Round(b.BackingThicknessMm / b.LayerHeightMm))
	if n < 1 {
		n = 1
	}
	return n
}

// TotalLayers returns the layer count of the volume Build will produce.
func (b *Builder) TotalLayers() int {
	n := palette.NumLayers + b.SpacerLayers()
	if b.Structure == DoubleSided {
		n += palette.NumLayers
	}
	return n
}

// Build turns a per-pixel stack assignment into a material volume. codes
// holds one matched stack code per pixel of src in row-major order; src
// supplies the alpha channel and, when auto background removal is enabled,
// the background reference color.
//
// Layer ordering is bottom-up: layers 0..4 carry the matched stacks with
// digit 0 at layer 0, followed by the spacer, followed (double-sided only)
// by the digit-reversed stacks.
func (b *Builder) Build(codes []palette.StackCode, src *image.RGBA) (*Volume, error) {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if len(codes) != width*height {
		return nil, fmt.Errorf("have %d matched stacks for a %dx%d image", len(codes), width, height)
	}

	mask := b.transparencyMask(src)
	vol := NewVolume(width, height, b.TotalLayers())

	spacer := b.SpacerLayers()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask[y*width+x] {
				continue
			}
			code := codes[y*width+x]
			digits := code.Digits()

			for k := 0; k < palette.NumLayers; k++ {
				vol.Set(x, y, k, digits[k])
			}
			for k := 0; k < spacer; k++ {
				vol.Set(x, y, palette.NumLayers+k, 0)
			}
			if b.Structure == DoubleSided {
				mirrored := code.Reversed().Digits()
				base := palette.NumLayers + spacer
				for k := 0; k < palette.NumLayers; k++ {
					vol.Set(x, y, base+k, mirrored[k])
				}
			}
		}
	}
	return vol, nil
}

// transparencyMask marks pixels that must produce no material: low alpha,
// plus background-colored pixels when auto removal is enabled. The
// background reference is the top-left pixel.
func (b *Builder) transparencyMask(src *image.RGBA) []bool {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	mask := make([]bool, width*height)

	ref := src.RGBAAt(bounds.Min.X, bounds.Min.Y)
	tol2 := b.BackgroundTolerance * b.BackgroundTolerance

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := src.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			if px.A < alphaThreshold {
				mask[y*width+x] = true
				continue
			}
			if b.AutoBackgroundRemoval {
				dr := int(px.R) - int(ref.R)
				dg := int(px.G) - int(ref.G)
				db := int(px.B) - int(ref.B)
				if dr*dr+dg*dg+db*db <= tol2 {
					mask[y*width+x] = true
				}
			}
		}
	}
	return mask
}
