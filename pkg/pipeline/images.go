// Package pipeline sequences the lower-level packages into the three
// end-to-end workflows: synthesizing a calibration board, extracting a
// color table from its photograph, and converting an arbitrary image
// into printable multi-material geometry.
package pipeline

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// loadImage opens and decodes a PNG or JPEG image.
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// resizeToWidth scales img to the given pixel width, preserving the
// aspect ratio. Catmull-Rom resampling keeps hue transitions smooth so
// color matching is not dominated by resize artifacts.
func resizeToWidth(img image.Image, width int) *image.RGBA {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	height := int(math.Round(float64(srcH) * float64(width) / float64(srcW)))
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}
