package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"colorstack3d/pkg/export"
	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/match"
	"colorstack3d/pkg/mesher"
	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/preview"
	"colorstack3d/pkg/voxel"
)

// ConvertParams holds the configuration for converting an arbitrary 2D
// image into printable multi-material geometry.
type ConvertParams struct {
	// ImagePath is the input image, in PNG or JPEG format.
	ImagePath string

	// LUTPath is the calibration lookup table extracted for the target
	// printer and material set.
	LUTPath string

	// Mode selects the material palette; it must match the mode the
	// board was calibrated with.
	Mode palette.Mode

	// Filter drops ambiguous dark calibration entries before matching.
	Filter match.OutlierFilter

	// Structure selects single- or double-sided output.
	Structure voxel.StructureMode

	// AutoBackgroundRemoval treats pixels near the top-left pixel's color
	// as transparent.
	AutoBackgroundRemoval bool

	// BackgroundTolerance is the RGB distance for background removal.
	BackgroundTolerance int

	// TargetWidthMm is the printed width of the model.
	TargetWidthMm float64

	// BackingThicknessMm is the backing (single-sided) or spacer
	// (double-sided) thickness.
	BackingThicknessMm float64

	// LayerHeightMm is the print layer height.
	LayerHeightMm float64

	// NozzleWidthMm is the extrusion width; it sets both the voxel pitch
	// and the printed pixel size.
	NozzleWidthMm float64

	// OutputDir is the directory where the model and preview files are
	// written.
	OutputDir string

	// NumCores specifies how many CPU cores to use for parallel
	// processing.
	NumCores int
}

// Converter runs the image-to-model conversion: every pixel is matched
// against the calibrated colors, the winning material stacks are stacked
// into a voxel volume, and the volume is meshed once per material.
type Converter struct {
	params *ConvertParams

	// volume is the built voxel model after Process.
	volume *voxel.Volume

	// meshes holds one mesh per material slot; a slot absent from the
	// model is nil.
	meshes [palette.NumMaterials]*mesher.Mesh
}

// NewConverter creates a converter with the provided parameters.
func NewConverter(params *ConvertParams) *Converter {
	return &Converter{params: params}
}

// Process runs the complete conversion pipeline.
func (c *Converter) Process() error {
	if err := os.MkdirAll(c.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Step 1: Load the calibration lookup table
	fmt.Println("Step 1: Loading lookup table...")
	table, err := lut.Load(c.params.LUTPath)
	if err != nil {
		return fmt.Errorf("failed to load lookup table: %w", err)
	}

	// Step 2: Load and scale the input image
	fmt.Println("Step 2: Loading input image...")
	img, err := loadImage(c.params.ImagePath)
	if err != nil {
		return err
	}
	widthPx := int(math.Round(c.params.TargetWidthMm / c.params.NozzleWidthMm))
	if widthPx < 1 {
		return fmt.Errorf("target width %.2f mm is below one voxel", c.params.TargetWidthMm)
	}
	scaled := resizeToWidth(img, widthPx)
	fmt.Printf("Scaled input to %dx%d voxels (%.1f mm wide)\n",
		scaled.Bounds().Dx(), scaled.Bounds().Dy(), c.params.TargetWidthMm)

	// Step 3: Match every pixel against the calibrated colors
	fmt.Println("Step 3: Matching pixels to material stacks...")
	matcher, err := match.NewMatcher(table, c.params.Filter)
	if err != nil {
		return fmt.Errorf("failed to index calibration colors: %w", err)
	}
	fmt.Printf("Matching against %d calibrated colors\n", matcher.Size())
	codes, matched := matcher.MatchImage(scaled, c.params.NumCores)

	matchedPath := filepath.Join(c.params.OutputDir, c.fileName("matched.png"))
	if err := preview.SavePNG(matchedPath, matched); err != nil {
		return fmt.Errorf("failed to save matched preview: %w", err)
	}

	// Step 4: Stack the matched codes into a voxel volume
	fmt.Println("Step 4: Building voxel model...")
	builder := &voxel.Builder{
		Structure:             c.params.Structure,
		AutoBackgroundRemoval: c.params.AutoBackgroundRemoval,
		BackgroundTolerance:   c.params.BackgroundTolerance,
		BackingThicknessMm:    c.params.BackingThicknessMm,
		LayerHeightMm:         c.params.LayerHeightMm,
	}
	vol, err := builder.Build(codes, scaled)
	if err != nil {
		return fmt.Errorf("failed to build voxel model: %w", err)
	}
	c.volume = vol
	fmt.Printf("Model is %dx%d voxels, %d layers\n", vol.Width, vol.Height, vol.Layers)

	// Step 5: Mesh each material
	fmt.Println("Step 5: Generating per-material meshes...")
	c.mesh()

	// Step 6: Export model files
	fmt.Println("Step 6: Exporting model files...")
	return c.export()
}

// mesh triangulates the model volume once per material slot.
func (c *Converter) mesh() {
	scale := mesher.Scale{XY: c.params.NozzleWidthMm, Z: c.params.LayerHeightMm}
	names := c.params.Mode.SlotNames()
	swatches := c.params.Mode.Swatches()

	for m := 0; m < palette.NumMaterials; m++ {
		mesh := mesher.FromVolume(c.volume, palette.Material(m), scale, c.params.NumCores)
		if mesh == nil {
			continue
		}
		mesh.Name = names[m]
		mesh.Color = swatches[m]
		c.meshes[m] = mesh
	}
}

// export writes the combined 3MF and one STL per present material.
func (c *Converter) export() error {
	modelPath := filepath.Join(c.params.OutputDir, c.fileName("model.3mf"))
	if err := export.Write3MF(modelPath, c.meshes[:]); err != nil {
		return fmt.Errorf("failed to write 3MF: %w", err)
	}
	fmt.Printf("Wrote %s\n", modelPath)

	for m, mesh := range c.meshes {
		if mesh == nil {
			continue
		}
		stlPath := filepath.Join(c.params.OutputDir,
			c.fileName(strings.ToLower(mesh.Name)+".stl"))
		if err := export.WriteSTL(stlPath, mesh); err != nil {
			return fmt.Errorf("failed to write STL for material %d: %w", m, err)
		}
		fmt.Printf("Wrote %s\n", stlPath)
	}
	return nil
}

// fileName prefixes an output file with the input image's base name.
func (c *Converter) fileName(suffix string) string {
	base := filepath.Base(c.params.ImagePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_" + suffix
}

// Volume returns the built voxel model, or nil before Process.
func (c *Converter) Volume() *voxel.Volume {
	return c.volume
}

// Meshes returns the per-material meshes in slot order; absent slots are
// nil.
func (c *Converter) Meshes() [palette.NumMaterials]*mesher.Mesh {
	return c.meshes
}
