package rectify

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/stat"
)

// patchSize is the edge length of the corner patches used to estimate
// illumination. The patches sit in the board's padding margin, which is
// bare backing material and should photograph as neutral white.
const patchSize = CellPx

// cornerPatches returns the four patch rectangles at the corners of the
// rectified image in top-left, top-right, bottom-right, bottom-left order.
func cornerPatches(img *image.RGBA) [4]image.Rectangle {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	return [4]image.Rectangle{
		image.Rect(0, 0, patchSize, patchSize),
		image.Rect(w-patchSize, 0, w, patchSize),
		image.Rect(w-patchSize, h-patchSize, w, h),
		image.Rect(0, h-patchSize, patchSize, h),
	}
}

// patchMean returns the mean R, G, B of a patch.
func patchMean(img *image.RGBA, rect image.Rectangle) (r, g, b float64) {
	var rs, gs, bs []float64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			px := img.RGBAAt(x, y)
			rs = append(rs, float64(px.R))
			gs = append(gs, float64(px.G))
			bs = append(bs, float64(px.B))
		}
	}
	return stat.Mean(rs, nil), stat.Mean(gs, nil), stat.Mean(bs, nil)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// AutoWhiteBalance neutralizes the photograph's color cast in place. The
// mean color over the four corner patches is assumed to be the backing
// white; each channel is scaled so that mean becomes pure white.
func AutoWhiteBalance(img *image.RGBA) {
	var r, g, b float64
	for _, rect := range cornerPatches(img) {
		pr, pg, pb := patchMean(img, rect)
		r += pr / 4
		g += pg / 4
		b += pb / 4
	}
	if r <= 0 || g <= 0 || b <= 0 {
		return
	}

	gainR := 255 / r
	gainG := 255 / g
	gainB := 255 / b

	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = clamp8(float64(img.Pix[i+0]) * gainR)
		img.Pix[i+1] = clamp8(float64(img.Pix[i+1]) * gainG)
		img.Pix[i+2] = clamp8(float64(img.Pix[i+2]) * gainB)
	}
}

// FlattenVignette removes a smooth brightness falloff in place. The four
// corner patch luminances define a bilinear brightness gradient across the
// image; every pixel's luma is rescaled so that gradient becomes flat at
// the patches' mean brightness. Chroma is left untouched.
func FlattenVignette(img *image.RGBA) {
	var luma [4]float64
	for i, rect := range cornerPatches(img) {
		r, g, b := patchMean(img, rect)
		y, _, _ := color.RGBToYCbCr(clamp8(r), clamp8(g), clamp8(b))
		luma[i] = float64(y)
	}
	target := (luma[0] + luma[1] + luma[2] + luma[3]) / 4
	if target <= 0 {
		return
	}

	w := img.Rect.Dx()
	h := img.Rect.Dy()
	for py := 0; py < h; py++ {
		fy := float64(py) / float64(h-1)
		for px := 0; px < w; px++ {
			fx := float64(px) / float64(w-1)

			// Bilinear interpolation of the corner luminances; index
			// order is TL, TR, BR, BL.
			top := luma[0]*(1-fx) + luma[1]*fx
			bot := luma[3]*(1-fx) + luma[2]*fx
			expected := top*(1-fy) + bot*fy
			if expected <= 0 {
				continue
			}

			i := img.PixOffset(px, py)
			y, cb, cr := color.RGBToYCbCr(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			scaled := clamp8(float64(y) * target / expected)
			r, g, b := color.YCbCrToRGB(scaled, cb, cr)
			img.Pix[i+0] = r
			img.Pix[i+1] = g
			img.Pix[i+2] = b
		}
	}
}
