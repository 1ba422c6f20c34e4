package preview

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/voxel"
)

func TestLayerImage(t *testing.T) {
	vol := voxel.NewVolume(4, 3, 2)
	vol.Set(1, 1, 0, 2)
	vol.Set(2, 1, 1, 0)

	v := NewViewer(vol, palette.ModeCMYW)
	swatches := palette.ModeCMYW.Swatches()

	img, err := v.LayerImage(0)
	if err != nil {
		t.Fatalf("LayerImage failed: %v", err)
	}
	if got := img.RGBAAt(1, 1); got != swatches[2] {
		t.Errorf("painted voxel renders as %v, want %v", got, swatches[2])
	}
	if got := img.RGBAAt(0, 0); got.A != 0 {
		t.Errorf("empty voxel renders as %v, want transparent", got)
	}

	// Material placed on layer 1 must not appear on layer 0.
	if got := img.RGBAAt(2, 1); got.A != 0 {
		t.Errorf("layer 1 voxel leaked into layer 0: %v", got)
	}

	if _, err := v.LayerImage(2); err == nil {
		t.Error("LayerImage accepted an out-of-range layer")
	}
}

func TestSaveLayerSequence(t *testing.T) {
	vol := voxel.NewVolume(2, 2, 3)
	vol.Set(0, 0, 0, 1)

	dir := filepath.Join(t.TempDir(), "layers")
	v := NewViewer(vol, palette.ModeRYBW)
	if err := v.SaveLayerSequence(dir); err != nil {
		t.Fatalf("SaveLayerSequence failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("saved %d files, want 3", len(entries))
	}

	// Every file must be a decodable PNG of the volume's footprint.
	for _, e := range entries {
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s is not a PNG: %v", e.Name(), err)
		}
		if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
			t.Errorf("%s is %v, want 2x2", e.Name(), img.Bounds())
		}
	}
}
