// Package config provides configuration loading and management for
// colorstack3d. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Printer describes the physical machine geometry shared by every
	// command.
	Printer struct {
		// NozzleWidthMm is the extrusion width; it sets the voxel pitch
		// in X and Y.
		NozzleWidthMm float64 `yaml:"nozzleWidthMm"`

		// LayerHeightMm is the print layer height.
		LayerHeightMm float64 `yaml:"layerHeightMm"`

		// NumCores specifies how many CPU cores to use for parallel
		// processing.
		NumCores int `yaml:"numCores"`
	} `yaml:"printer"`

	// Calibration parameterizes board synthesis.
	Calibration struct {
		// ColorMode is CMYW or RYBW.
		ColorMode string `yaml:"colorMode"`

		// BlockSizeMm is the edge length of one calibration block.
		BlockSizeMm float64 `yaml:"blockSizeMm"`

		// GapMm is the spacing between blocks.
		GapMm float64 `yaml:"gapMm"`

		// BackingMaterial is the slot name of the plate material.
		BackingMaterial string `yaml:"backingMaterial"`

		// BackingThicknessMm is the plate thickness.
		BackingThicknessMm float64 `yaml:"backingThicknessMm"`
	} `yaml:"calibration"`

	// Extraction parameterizes photograph sampling.
	Extraction struct {
		// OffsetX and OffsetY shift every sample position in pixels.
		OffsetX float64 `yaml:"offsetX"`
		OffsetY float64 `yaml:"offsetY"`

		// Zoom scales sample positions radially, typically in [0.8,1.2].
		Zoom float64 `yaml:"zoom"`

		// BarrelDistortion corrects radial lens distortion, typically in
		// [-0.2,0.2].
		BarrelDistortion float64 `yaml:"barrelDistortion"`

		// AutoWhiteBalance neutralizes the photo's color cast from the
		// corner patches.
		AutoWhiteBalance bool `yaml:"autoWhiteBalance"`

		// VignetteFix flattens smooth brightness falloff.
		VignetteFix bool `yaml:"vignetteFix"`
	} `yaml:"extraction"`

	// Conversion parameterizes image-to-model conversion.
	Conversion struct {
		// StructureMode is single or double.
		StructureMode string `yaml:"structureMode"`

		// AutoBackgroundRemoval treats pixels near the top-left pixel's
		// color as transparent.
		AutoBackgroundRemoval bool `yaml:"autoBackgroundRemoval"`

		// BackgroundTolerance is the RGB distance for background removal.
		BackgroundTolerance int `yaml:"backgroundTolerance"`

		// TargetWidthMm is the printed width of the converted image.
		TargetWidthMm float64 `yaml:"targetWidthMm"`

		// BackingThicknessMm is the backing/spacer thickness.
		BackingThicknessMm float64 `yaml:"backingThicknessMm"`
	} `yaml:"conversion"`

	// OutlierFilter controls the dark-color calibration filter. Its
	// reference color and distance are tuned per printer and material
	// set; they are deliberately not hard-coded.
	OutlierFilter struct {
		Enabled bool `yaml:"enabled"`

		// Reference is the ambiguous dark color as [r, g, b].
		Reference [3]uint8 `yaml:"reference"`

		// MaxDistance is the RGB distance within which a measurement
		// counts as the reference color.
		MaxDistance float64 `yaml:"maxDistance"`

		// RequiredMaterial is the slot name that must appear in a stack
		// for a reference-like color to be believable. Empty selects the
		// mode's default dark accent.
		RequiredMaterial string `yaml:"requiredMaterial"`
	} `yaml:"outlierFilter"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default printer parameters
	cfg.Printer.NozzleWidthMm = 0.4
	cfg.Printer.LayerHeightMm = 0.2
	cfg.Printer.NumCores = runtime.NumCPU()

	// Set default calibration parameters
	cfg.Calibration.ColorMode = "CMYW"
	cfg.Calibration.BlockSizeMm = 5.0
	cfg.Calibration.GapMm = 0.82
	cfg.Calibration.BackingMaterial = "White"
	cfg.Calibration.BackingThicknessMm = 1.0

	// Set default extraction parameters
	cfg.Extraction.Zoom = 1.0
	cfg.Extraction.AutoWhiteBalance = true
	cfg.Extraction.VignetteFix = true

	// Set default conversion parameters
	cfg.Conversion.StructureMode = "single"
	cfg.Conversion.BackgroundTolerance = 12
	cfg.Conversion.TargetWidthMm = 100.0
	cfg.Conversion.BackingThicknessMm = 1.0

	// Set default outlier filter parameters
	cfg.OutlierFilter.Enabled = true
	cfg.OutlierFilter.Reference = [3]uint8{25, 30, 70}
	cfg.OutlierFilter.MaxDistance = 60

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
