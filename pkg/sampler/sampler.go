// Package sampler reads the measured color of every calibration grid cell
// out of a rectified board photograph and assembles the color lookup
// table. An optional radial-distortion/zoom/offset model nudges the sample
// positions when the physical print or the photograph deviates slightly
// from the ideal geometry.
package sampler

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/rectify"
)

// windowRadius gives the 9x9 averaging window around each sample position.
const windowRadius = 4

// Options tunes the cell-center mapping. The zero value is the identity
// model (zoom is normalized so 0 means 1.0).
type Options struct {
	// OffsetX and OffsetY shift every sample position in pixels.
	OffsetX float64
	OffsetY float64

	// Zoom scales sample positions radially around the image center.
	// Values are expected near 1.0; zero is treated as 1.0.
	Zoom float64

	// Barrel corrects radial lens distortion: each sample's normalized
	// radius is scaled by 1 + Barrel*r^2.
	Barrel float64

	// Workers bounds the sampling worker pool; <1 means all CPUs.
	Workers int
}

func (o Options) zoom() float64 {
	if o.Zoom == 0 {
		return 1
	}
	return o.Zoom
}

// CellCenter maps a logical grid cell (row, col in [0,32)) to its sample
// position in the rectified image. The cell sits inside the padded 34x34
// board grid, so logical (0,0) is physical cell (1,1). Normalized
// coordinates in [-1,1] around the image center run through the radial
// distortion model and the zoom factor before the pixel offset is added.
func CellCenter(row, col int, opts Options) (x, y float64) {
	const half = float64(rectify.SquareSize) / 2

	cx := (float64(col+1) + 0.5) * rectify.CellPx
	cy := (float64(row+1) + 0.5) * rectify.CellPx

	nx := (cx - half) / half
	ny := (cy - half) / half
	r2 := nx*nx + ny*ny
	k := (1 + opts.Barrel*r2) * opts.zoom()

	x = half + nx*k*half + opts.OffsetX
	y = half + ny*k*half + opts.OffsetY
	return x, y
}

// Sample measures all 1024 grid cells of a rectified board image and
// returns the lookup table. Each cell's color is the mean of a 9x9 window
// centered on its mapped position; window pixels outside the image count
// as black, so a slightly misplaced grid darkens instead of failing. Rows
// are sampled by a worker pool, each writing only its own table rows.
func Sample(rect *image.RGBA, opts Options) *lut.Table {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	var table lut.Table
	var wg sync.WaitGroup
	rowCh := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rowCh {
				for col := 0; col < lut.GridSize; col++ {
					x, y := CellCenter(row, col, opts)
					code := palette.StackCode(row*lut.GridSize + col)
					table.Set(code, averageWindow(rect, x, y))
				}
			}
		}()
	}
	for row := 0; row < lut.GridSize; row++ {
		rowCh <- row
	}
	close(rowCh)
	wg.Wait()

	return &table
}

// averageWindow means the (2*windowRadius+1)^2 pixels around (x, y).
func averageWindow(img *image.RGBA, x, y float64) lut.RGB {
	cx := int(math.Round(x))
	cy := int(math.Round(y))
	w := img.Rect.Dx()
	h := img.Rect.Dy()

	var r, g, b int
	for dy := -windowRadius; dy <= windowRadius; dy++ {
		for dx := -windowRadius; dx <= windowRadius; dx++ {
			px, py := cx+dx, cy+dy
			if px < 0 || py < 0 || px >= w || py >= h {
				continue // out of bounds reads as black
			}
			p := img.RGBAAt(px, py)
			r += int(p.R)
			g += int(p.G)
			b += int(p.B)
		}
	}

	n := (2*windowRadius + 1) * (2*windowRadius + 1)
	return lut.RGB{uint8(r / n), uint8(g / n), uint8(b / n)}
}

// Overlay copies the rectified image and marks every sample position with
// a crosshair so the operator can verify the grid model visually before
// trusting the extracted table.
func Overlay(rect *image.RGBA, opts Options) *image.RGBA {
	out := image.NewRGBA(rect.Rect)
	copy(out.Pix, rect.Pix)

	marker := color.RGBA{R: 255, G: 0, B: 255, A: 255}
	for row := 0; row < lut.GridSize; row++ {
		for col := 0; col < lut.GridSize; col++ {
			x, y := CellCenter(row, col, opts)
			drawCrosshair(out, int(math.Round(x)), int(math.Round(y)), marker)
		}
	}
	return out
}

func drawCrosshair(img *image.RGBA, x, y int, c color.RGBA) {
	for d := -windowRadius; d <= windowRadius; d++ {
		if image.Pt(x+d, y).In(img.Rect) {
			img.SetRGBA(x+d, y, c)
		}
		if image.Pt(x, y+d).In(img.Rect) {
			img.SetRGBA(x, y+d, c)
		}
	}
}
