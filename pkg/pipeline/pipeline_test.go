package pipeline

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/match"
	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/rectify"
	"colorstack3d/pkg/sampler"
	"colorstack3d/pkg/voxel"
)

// savePNG writes a test image to disk.
func savePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

// TestCalibratorEndToEnd synthesizes a full board with the smallest
// printable blocks and verifies that every material slot produces
// geometry and every expected output file appears.
func TestCalibratorEndToEnd(t *testing.T) {
	outDir := t.TempDir()

	cal := NewCalibrator(&CalibrateParams{
		Mode:               palette.ModeRYBW,
		BlockSizeMm:        0.4,
		GapMm:              0.4,
		Backing:            0,
		BackingThicknessMm: 0.2,
		LayerHeightMm:      0.2,
		NozzleWidthMm:      0.4,
		OutputDir:          outDir,
		NumCores:           2,
	})
	if err := cal.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// The board enumerates every stack, so all four materials must
	// produce geometry.
	names := palette.ModeRYBW.SlotNames()
	for m, mesh := range cal.Meshes() {
		if mesh == nil {
			t.Errorf("material %d (%s) produced no mesh", m, names[m])
			continue
		}
		if mesh.Name != names[m] {
			t.Errorf("mesh %d named %q, want %q", m, mesh.Name, names[m])
		}
	}

	wantFiles := []string{
		"calibration_rybw_board.3mf",
		"calibration_rybw_preview.png",
		"calibration_rybw_white.stl",
		"calibration_rybw_red.stl",
		"calibration_rybw_yellow.stl",
		"calibration_rybw_blue.stl",
	}
	for _, name := range wantFiles {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}

// paintedColor is the synthetic calibration color for grid cell (r, c).
func paintedColor(r, c int) lut.RGB {
	return lut.RGB{uint8(40 + r*6), uint8(40 + c*6), uint8((r*lut.GridSize + c) % 256)}
}

// paintBoardPhoto renders an ideal photograph of the board: already
// square, every cell a flat block of its painted color.
func paintBoardPhoto() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, rectify.SquareSize, rectify.SquareSize))
	for y := 0; y < rectify.SquareSize; y++ {
		for x := 0; x < rectify.SquareSize; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	for r := 0; r < lut.GridSize; r++ {
		for c := 0; c < lut.GridSize; c++ {
			p := paintedColor(r, c)
			ox := (c + 1) * rectify.CellPx
			oy := (r + 1) * rectify.CellPx
			for y := oy; y < oy+rectify.CellPx; y++ {
				for x := ox; x < ox+rectify.CellPx; x++ {
					img.SetRGBA(x, y, color.RGBA{p[0], p[1], p[2], 255})
				}
			}
		}
	}
	return img
}

// TestExtractorRecoversPaintedBoard feeds the extractor an ideal,
// distortion-free photograph and expects the lookup table to reproduce
// the painted cell colors exactly.
func TestExtractorRecoversPaintedBoard(t *testing.T) {
	dir := t.TempDir()
	photoPath := filepath.Join(dir, "photo.png")
	lutPath := filepath.Join(dir, "colors.lut")
	overlayPath := filepath.Join(dir, "overlay.png")

	savePNG(t, photoPath, paintBoardPhoto())

	// The photo is already the reference square, so the picked corners
	// are the rectification targets themselves.
	tc := rectify.TargetCorners()

	ext := NewExtractor(&ExtractParams{
		PhotoPath:   photoPath,
		Corners:     tc[:],
		Sampling:    sampler.Options{Workers: 2},
		OutputLUT:   lutPath,
		OverlayPath: overlayPath,
	})
	if err := ext.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := &lut.Table{}
	for r := 0; r < lut.GridSize; r++ {
		for c := 0; c < lut.GridSize; c++ {
			want.Set(palette.StackCode(r*lut.GridSize+c), paintedColor(r, c))
		}
	}
	if diff := cmp.Diff(want, ext.Table()); diff != "" {
		t.Errorf("extracted table mismatch (-want +got):\n%s", diff)
	}

	// The saved file must round-trip to the same table.
	loaded, err := lut.Load(lutPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(ext.Table(), loaded); diff != "" {
		t.Errorf("saved table mismatch (-extracted +loaded):\n%s", diff)
	}

	if _, err := os.Stat(overlayPath); err != nil {
		t.Errorf("missing overlay image: %v", err)
	}
}

// testTable builds a lookup table whose colors uniquely identify their
// stack codes.
func testTable() *lut.Table {
	t := &lut.Table{}
	for code := 0; code < palette.NumCodes; code++ {
		t.Set(palette.StackCode(code), lut.RGB{
			uint8(code >> 2),
			uint8(code),
			uint8(code % 7 * 30),
		})
	}
	return t
}

// convertParams returns a converter configuration for a small test image.
func convertParams(imagePath, lutPath, outDir string, cores int) *ConvertParams {
	return &ConvertParams{
		ImagePath:          imagePath,
		LUTPath:            lutPath,
		Mode:               palette.ModeCMYW,
		Filter:             match.OutlierFilter{},
		Structure:          voxel.SingleSided,
		TargetWidthMm:      0.8,
		BackingThicknessMm: 0.2,
		LayerHeightMm:      0.2,
		NozzleWidthMm:      0.4,
		OutputDir:          outDir,
		NumCores:           cores,
	}
}

// TestConverterEndToEnd converts a 2x2 image whose pixels are exact
// calibrated colors and verifies the voxel volume reproduces the stack
// digits of the chosen codes.
func TestConverterEndToEnd(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "input.png")
	lutPath := filepath.Join(dir, "colors.lut")
	outDir := filepath.Join(dir, "out")

	table := testTable()
	if err := lut.Save(lutPath, table); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	codes := []palette.StackCode{0, 57, 600, 1023}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i, code := range codes {
		c := table.At(code)
		img.SetRGBA(i%2, i/2, color.RGBA{c[0], c[1], c[2], 255})
	}
	savePNG(t, imagePath, img)

	conv := NewConverter(convertParams(imagePath, lutPath, outDir, 2))
	if err := conv.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	vol := conv.Volume()
	if vol.Width != 2 || vol.Height != 2 {
		t.Fatalf("volume is %dx%d, want 2x2", vol.Width, vol.Height)
	}
	// Five stack layers plus one backing layer.
	if vol.Layers != 6 {
		t.Fatalf("volume has %d layers, want 6", vol.Layers)
	}
	for i, code := range codes {
		digits := code.Digits()
		x, y := i%2, i/2
		for k := 0; k < palette.NumLayers; k++ {
			if got := vol.At(x, y, k); got != digits[k] {
				t.Errorf("voxel (%d,%d,%d) = %d, want %d", x, y, k, got, digits[k])
			}
		}
		if got := vol.At(x, y, palette.NumLayers); got != 0 {
			t.Errorf("backing voxel (%d,%d) = %d, want 0", x, y, got)
		}
	}

	for _, name := range []string{"input_model.3mf", "input_matched.png"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}

// TestConverterDeterministic converts the same input with different
// worker counts and expects identical geometry.
func TestConverterDeterministic(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "input.png")
	lutPath := filepath.Join(dir, "colors.lut")

	table := testTable()
	if err := lut.Save(lutPath, table); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i, code := range []palette.StackCode{3, 170, 512, 900} {
		c := table.At(code)
		img.SetRGBA(i%2, i/2, color.RGBA{c[0], c[1], c[2], 255})
	}
	savePNG(t, imagePath, img)

	first := NewConverter(convertParams(imagePath, lutPath, filepath.Join(dir, "a"), 1))
	if err := first.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	second := NewConverter(convertParams(imagePath, lutPath, filepath.Join(dir, "b"), 4))
	if err := second.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if diff := cmp.Diff(first.Meshes(), second.Meshes()); diff != "" {
		t.Errorf("meshes differ across worker counts (-1 core +4 cores):\n%s", diff)
	}
}
