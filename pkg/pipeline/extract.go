package pipeline

import (
	"fmt"

	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/preview"
	"colorstack3d/pkg/rectify"
	"colorstack3d/pkg/sampler"
)

// ExtractParams holds the configuration for lookup-table extraction from
// a photographed calibration board.
type ExtractParams struct {
	// PhotoPath is the photograph of the printed board, in PNG or JPEG
	// format.
	PhotoPath string

	// Corners are the four photographed board corners in click order:
	// top-left, top-right, bottom-right, bottom-left.
	Corners []rectify.Point

	// Sampling tunes the grid sample positions on the rectified image.
	Sampling sampler.Options

	// AutoWhiteBalance neutralizes the photograph's color cast using the
	// four corner marker patches.
	AutoWhiteBalance bool

	// VignetteFix flattens smooth brightness falloff toward the image
	// edges.
	VignetteFix bool

	// OutputLUT is the path where the extracted table is written.
	OutputLUT string

	// OverlayPath, when non-empty, receives a copy of the rectified image
	// with the sample positions marked for visual verification.
	OverlayPath string
}

// Extractor turns a photograph of the printed calibration board into the
// color lookup table that drives image conversion.
type Extractor struct {
	params *ExtractParams

	// table is the extracted lookup table after Process.
	table *lut.Table
}

// NewExtractor creates an extractor with the provided parameters.
func NewExtractor(params *ExtractParams) *Extractor {
	return &Extractor{params: params}
}

// Process runs the complete extraction pipeline.
func (e *Extractor) Process() error {
	// Step 1: Load the photograph
	fmt.Println("Step 1: Loading photograph...")
	photo, err := loadImage(e.params.PhotoPath)
	if err != nil {
		return fmt.Errorf("failed to load photograph: %w", err)
	}
	bounds := photo.Bounds()
	fmt.Printf("Loaded %dx%d photograph\n", bounds.Dx(), bounds.Dy())

	// Step 2: Rectify the board onto the reference square
	fmt.Println("Step 2: Rectifying perspective...")
	pts, err := rectify.PointsFrom(e.params.Corners)
	if err != nil {
		return fmt.Errorf("invalid corner points: %w", err)
	}
	rect, err := rectify.Rectify(photo, pts)
	if err != nil {
		return fmt.Errorf("failed to rectify photograph: %w", err)
	}

	// Step 3: Normalize illumination
	fmt.Println("Step 3: Normalizing illumination...")
	if e.params.AutoWhiteBalance {
		rectify.AutoWhiteBalance(rect)
	}
	if e.params.VignetteFix {
		rectify.FlattenVignette(rect)
	}

	// Step 4: Sample the color grid
	fmt.Println("Step 4: Sampling color grid...")
	e.table = sampler.Sample(rect, e.params.Sampling)

	// Step 5: Save the lookup table
	fmt.Println("Step 5: Saving lookup table...")
	if err := lut.Save(e.params.OutputLUT, e.table); err != nil {
		return fmt.Errorf("failed to save lookup table: %w", err)
	}
	fmt.Printf("Wrote %s\n", e.params.OutputLUT)

	// Save the sampling overlay for visual verification
	if e.params.OverlayPath != "" {
		overlay := sampler.Overlay(rect, e.params.Sampling)
		if err := preview.SavePNG(e.params.OverlayPath, overlay); err != nil {
			return fmt.Errorf("failed to save sampling overlay: %w", err)
		}
		fmt.Printf("Wrote %s\n", e.params.OverlayPath)
	}

	return nil
}

// Table returns the extracted lookup table, or nil before Process.
func (e *Extractor) Table() *lut.Table {
	return e.table
}
