// Package board synthesizes the physical calibration pattern: a 32x32
// grid of blocks that together print every one of the 1024 possible
// five-layer material stacks, surrounded by a one-cell border whose four
// corners carry alignment markers. Photographing the printed board and
// sampling it back yields the color lookup table.
package board

import (
	"fmt"
	"image"
	"math"

	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/voxel"
)

// Params describes one calibration board.
type Params struct {
	// Mode selects the material palette.
	Mode palette.Mode

	// BlockSizeMm is the edge length of one color block.
	BlockSizeMm float64

	// GapMm is the spacing between neighboring blocks.
	GapMm float64

	// Backing is the material of the solid plate behind the color layers.
	Backing palette.Material

	// BackingThicknessMm is the plate thickness.
	BackingThicknessMm float64

	// LayerHeightMm is the print layer height.
	LayerHeightMm float64

	// NozzleWidthMm is the print head's extrusion width; it defines the
	// voxel pitch in X and Y.
	NozzleWidthMm float64
}

// Layout is the integer pixel geometry derived from the physical
// parameters.
type Layout struct {
	BlockPx int // block edge length in voxels
	GapPx   int // gap width in voxels
	SizePx  int // board edge length in voxels
	Layers  int // total layer count including backing
}

// pitch is the distance between the starts of neighboring cells.
func (l Layout) pitch() int {
	return l.BlockPx + l.GapPx
}

// CellOrigin returns the voxel position of the block in padded grid cell
// (row, col), with (0,0) the top-left marker cell.
func (l Layout) CellOrigin(row, col int) (x, y int) {
	return l.GapPx + col*l.pitch(), l.GapPx + row*l.pitch()
}

// CellCenter returns the voxel position of the block center of padded
// grid cell (row, col).
func (l Layout) CellCenter(row, col int) (x, y int) {
	ox, oy := l.CellOrigin(row, col)
	return ox + l.BlockPx/2, oy + l.BlockPx/2
}

// NewLayout converts physical lengths to the integer voxel grid.
func NewLayout(p Params) (Layout, error) {
	if p.BlockSizeMm <= 0 || p.GapMm <= 0 {
		return Layout{}, fmt.Errorf("block size and gap must be positive, got %g and %g", p.BlockSizeMm, p.GapMm)
	}
	if p.NozzleWidthMm <= 0 || p.LayerHeightMm <= 0 {
		return Layout{}, fmt.Errorf("nozzle width and layer height must be positive, got %g and %g", p.NozzleWidthMm, p.LayerHeightMm)
	}
	if !p.Backing.Valid() {
		return Layout{}, fmt.Errorf("backing material %d is not a material slot", p.Backing)
	}

	blockPx := int(math.Round(p.BlockSizeMm / p.NozzleWidthMm))
	if blockPx < 1 {
		blockPx = 1
	}
	gapPx := int(math.Round(p.GapMm / p.NozzleWidthMm))
	if gapPx < 1 {
		gapPx = 1
	}

	backingLayers := int(math.Round(p.BackingThicknessMm / p.LayerHeightMm))
	if backingLayers < 1 {
		backingLayers = 1
	}

	l := Layout{
		BlockPx: blockPx,
		GapPx:   gapPx,
		Layers:  palette.NumLayers + backingLayers,
	}
	l.SizePx = gapPx + gridCells*l.pitch()
	return l, nil
}

// gridCells is the padded board width in cells: 32 color cells plus the
// marker border.
const gridCells = lut.GridSize + 2

// Build paints the full board volume and renders the flat preview of the
// bottom color layer using the mode's swatches.
func Build(p Params) (*voxel.Volume, *image.RGBA, error) {
	layout, err := NewLayout(p)
	if err != nil {
		return nil, nil, err
	}

	vol := voxel.NewVolume(layout.SizePx, layout.SizePx, layout.Layers)

	// Color grid: cell (r,c) of the logical 32x32 grid prints stack code
	// r*32+c, digit k at layer k.
	for row := 0; row < lut.GridSize; row++ {
		for col := 0; col < lut.GridSize; col++ {
			code := palette.StackCode(row*lut.GridSize + col)
			digits := code.Digits()
			for k := 0; k < palette.NumLayers; k++ {
				paintBlock(vol, layout, row+1, col+1, k, digits[k])
			}
		}
	}

	// Backing plate: the full footprint above the color layers.
	for z := palette.NumLayers; z < layout.Layers; z++ {
		for y := 0; y < layout.SizePx; y++ {
			for x := 0; x < layout.SizePx; x++ {
				vol.Set(x, y, z, p.Backing)
			}
		}
	}

	// Corner markers overwrite the border last, full stack height each.
	markers := [4]struct{ row, col int }{
		{0, 0},                         // top-left
		{0, gridCells - 1},             // top-right
		{gridCells - 1, gridCells - 1}, // bottom-right
		{gridCells - 1, 0},             // bottom-left
	}
	for corner, pos := range markers {
		m := palette.CornerMaterial(palette.Corner(corner))
		for k := 0; k < palette.NumLayers; k++ {
			paintBlock(vol, layout, pos.row, pos.col, k, m)
		}
	}

	return vol, preview(vol, p.Mode), nil
}

// paintBlock fills one cell's block area at one layer.
func paintBlock(vol *voxel.Volume, l Layout, row, col, layer int, m palette.Material) {
	ox, oy := l.CellOrigin(row, col)
	for y := oy; y < oy+l.BlockPx; y++ {
		for x := ox; x < ox+l.BlockPx; x++ {
			vol.Set(x, y, layer, m)
		}
	}
}

// preview renders the bottom color layer as a flat image, one pixel per
// voxel. Empty voxels stay transparent.
func preview(vol *voxel.Volume, mode palette.Mode) *image.RGBA {
	swatches := mode.Swatches()
	img := image.NewRGBA(image.Rect(0, 0, vol.Width, vol.Height))
	for y := 0; y < vol.Height; y++ {
		for x := 0; x < vol.Width; x++ {
			m := vol.At(x, y, 0)
			if !m.Valid() {
				continue
			}
			img.SetRGBA(x, y, swatches[m])
		}
	}
	return img
}
