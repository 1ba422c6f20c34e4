// Package preview renders material volumes as flat images for operator
// inspection: single layers colored with the mode's swatches, or a whole
// layer sequence saved as numbered files.
package preview

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/voxel"
)

// Viewer renders layers of one material volume.
type Viewer struct {
	vol    *voxel.Volume
	colors [palette.NumMaterials][4]uint8
}

// NewViewer creates a viewer for the volume using the mode's preview
// swatches.
func NewViewer(vol *voxel.Volume, mode palette.Mode) *Viewer {
	v := &Viewer{vol: vol}
	for i, sw := range mode.Swatches() {
		v.colors[i] = [4]uint8{sw.R, sw.G, sw.B, sw.A}
	}
	return v
}

// LayerImage renders one print layer, one pixel per voxel. Empty voxels
// stay transparent.
func (v *Viewer) LayerImage(layer int) (*image.RGBA, error) {
	if layer < 0 || layer >= v.vol.Layers {
		return nil, fmt.Errorf("layer %d outside volume with %d layers", layer, v.vol.Layers)
	}

	img := image.NewRGBA(image.Rect(0, 0, v.vol.Width, v.vol.Height))
	for y := 0; y < v.vol.Height; y++ {
		for x := 0; x < v.vol.Width; x++ {
			m := v.vol.At(x, y, layer)
			if !m.Valid() {
				continue
			}
			c := v.colors[m]
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c[0]
			img.Pix[i+1] = c[1]
			img.Pix[i+2] = c[2]
			img.Pix[i+3] = c[3]
		}
	}
	return img, nil
}

// SaveLayerSequence renders every layer into outputDir as numbered PNG
// files.
func (v *Viewer) SaveLayerSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for layer := 0; layer < v.vol.Layers; layer++ {
		img, err := v.LayerImage(layer)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("layer_%03d.png", layer))
		if err := SavePNG(filename, img); err != nil {
			return err
		}
	}
	return nil
}

// SavePNG writes an image as a PNG file.
func SavePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}
