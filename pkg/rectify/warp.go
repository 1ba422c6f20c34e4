package rectify

import (
	"image"
	"image/draw"
	"math"
)

const (
	// CellPx is the edge length of one logical grid cell in the rectified
	// image.
	CellPx = 30

	// GridCells is the padded board width in cells: the 32x32 color grid
	// plus the one-cell marker border.
	GridCells = 34

	// SquareSize is the edge length of the rectified output image.
	SquareSize = CellPx * GridCells
)

// TargetCorners returns the destination positions of the four picked
// corner markers in the rectified square, in click order. They are inset
// by half a cell from each edge so that the center of every grid cell
// lands exactly on a sampling position.
func TargetCorners() [4]Point {
	const inset = CellPx / 2
	const far = SquareSize - inset
	return [4]Point{
		{X: inset, Y: inset}, // top-left
		{X: far, Y: inset},   // top-right
		{X: far, Y: far},     // bottom-right
		{X: inset, Y: far},   // bottom-left
	}
}

// Rectify warps the photographed board onto the canonical square. The
// four corner points must be complete; the warp runs backward, mapping
// every destination pixel through the square-to-photo homography and
// sampling the photograph bilinearly. Destination pixels that land
// outside the photograph become black.
func Rectify(src image.Image, pts *Points) (*image.RGBA, error) {
	corners, err := pts.Corners()
	if err != nil {
		return nil, err
	}

	h, err := EstimateHomography(TargetCorners(), corners)
	if err != nil {
		return nil, err
	}

	rgba := toRGBA(src)
	out := image.NewRGBA(image.Rect(0, 0, SquareSize, SquareSize))
	for y := 0; y < SquareSize; y++ {
		for x := 0; x < SquareSize; x++ {
			p := h.Apply(Point{X: float64(x), Y: float64(y)})
			r, g, b, a := sampleBilinear(rgba, p.X, p.Y)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = a
		}
	}
	return out, nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	return rgba
}

// sampleBilinear reads the image at a fractional position. Samples fully
// outside the image are black; at the border the blend clamps to the edge
// pixels.
func sampleBilinear(img *image.RGBA, x, y float64) (r, g, b, a uint8) {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	if x < -0.5 || y < -0.5 || x > float64(w)-0.5 || y > float64(h)-0.5 {
		return 0, 0, 0, 255
	}

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	clampX := func(v int) int {
		if v < 0 {
			return 0
		}
		if v >= w {
			return w - 1
		}
		return v
	}
	clampY := func(v int) int {
		if v < 0 {
			return 0
		}
		if v >= h {
			return h - 1
		}
		return v
	}

	p00 := img.RGBAAt(clampX(x0), clampY(y0))
	p10 := img.RGBAAt(clampX(x0+1), clampY(y0))
	p01 := img.RGBAAt(clampX(x0), clampY(y0+1))
	p11 := img.RGBAAt(clampX(x0+1), clampY(y0+1))

	lerp := func(c00, c10, c01, c11 uint8) uint8 {
		top := float64(c00)*(1-fx) + float64(c10)*fx
		bot := float64(c01)*(1-fx) + float64(c11)*fx
		return uint8(math.Round(top*(1-fy) + bot*fy))
	}
	return lerp(p00.R, p10.R, p01.R, p11.R),
		lerp(p00.G, p10.G, p01.G, p11.G),
		lerp(p00.B, p10.B, p01.B, p11.B),
		lerp(p00.A, p10.A, p01.A, p11.A)
}
