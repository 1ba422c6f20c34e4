package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"colorstack3d/pkg/board"
	"colorstack3d/pkg/export"
	"colorstack3d/pkg/mesher"
	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/preview"
	"colorstack3d/pkg/voxel"
)

// CalibrateParams holds the configuration for calibration board
// synthesis.
type CalibrateParams struct {
	// Mode selects the material palette the board enumerates.
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

	// NozzleWidthMm is the extrusion width; it sets the voxel pitch in X
	// and Y.
	NozzleWidthMm float64

	// OutputDir is the directory where the model and preview files are
	// written.
	OutputDir string

	// NumCores specifies how many CPU cores to use for parallel
	// processing.
	NumCores int

	// SaveLayerPreviews additionally writes one PNG per print layer.
	SaveLayerPreviews bool
}

// Calibrator synthesizes the printable calibration board for one color
// mode: a plate carrying every possible five-layer material stack plus
// the four corner orientation markers.
type Calibrator struct {
	params *CalibrateParams

	// volume is the synthesized board after Process.
	volume *voxel.Volume

	// meshes holds one mesh per material slot; a slot absent from the
	// board is nil.
	meshes [palette.NumMaterials]*mesher.Mesh
}

// NewCalibrator creates a calibrator with the provided parameters.
func NewCalibrator(params *CalibrateParams) *Calibrator {
	return &Calibrator{params: params}
}

// Process runs the complete board synthesis pipeline.
func (c *Calibrator) Process() error {
	if err := os.MkdirAll(c.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Step 1: Synthesize the voxel board
	fmt.Println("Step 1: Synthesizing calibration board...")
	vol, boardPreview, err := board.Build(board.Params{
		Mode:               c.params.Mode,
		BlockSizeMm:        c.params.BlockSizeMm,
		GapMm:              c.params.GapMm,
		Backing:            c.params.Backing,
		BackingThicknessMm: c.params.BackingThicknessMm,
		LayerHeightMm:      c.params.LayerHeightMm,
		NozzleWidthMm:      c.params.NozzleWidthMm,
	})
	if err != nil {
		return fmt.Errorf("failed to synthesize board: %w", err)
	}
	c.volume = vol
	fmt.Printf("Board is %dx%d voxels, %d layers\n", vol.Width, vol.Height, vol.Layers)

	// Step 2: Mesh each material
	fmt.Println("Step 2: Generating per-material meshes...")
	c.mesh()

	// Step 3: Export model files
	fmt.Println("Step 3: Exporting model files...")
	if err := c.export(); err != nil {
		return err
	}

	// Step 4: Save preview images
	fmt.Println("Step 4: Saving preview images...")
	previewPath := filepath.Join(c.params.OutputDir, c.fileName("preview.png"))
	if err := preview.SavePNG(previewPath, boardPreview); err != nil {
		return fmt.Errorf("failed to save board preview: %w", err)
	}
	if c.params.SaveLayerPreviews {
		viewer := preview.NewViewer(vol, c.params.Mode)
		layerDir := filepath.Join(c.params.OutputDir, c.fileName("layers"))
		if err := viewer.SaveLayerSequence(layerDir); err != nil {
			return fmt.Errorf("failed to save layer previews: %w", err)
		}
	}

	return nil
}

// mesh triangulates the board volume once per material slot.
func (c *Calibrator) mesh() {
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
func (c *Calibrator) export() error {
	modelPath := filepath.Join(c.params.OutputDir, c.fileName("board.3mf"))
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

// fileName prefixes an output file with the board's color mode.
func (c *Calibrator) fileName(suffix string) string {
	return fmt.Sprintf("calibration_%s_%s", strings.ToLower(c.params.Mode.String()), suffix)
}

// Volume returns the synthesized board volume, or nil before Process.
func (c *Calibrator) Volume() *voxel.Volume {
	return c.volume
}

// Meshes returns the per-material meshes in slot order; absent slots are
// nil.
func (c *Calibrator) Meshes() [palette.NumMaterials]*mesher.Mesh {
	return c.meshes
}
