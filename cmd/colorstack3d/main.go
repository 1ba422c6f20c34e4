// Command colorstack3d turns photographs into multi-material 3D prints.
//
// It has three subcommands covering the full workflow:
//
//	calibrate  synthesize the printable color calibration board
//	extract    build a color lookup table from a photo of the board
//	convert    turn an arbitrary image into printable geometry
//
// All subcommands read shared defaults from a YAML configuration file;
// init-config writes one with default values to edit.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"colorstack3d/internal/stats"
	"colorstack3d/pkg/config"
	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/match"
	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/pipeline"
	"colorstack3d/pkg/rectify"
	"colorstack3d/pkg/sampler"
	"colorstack3d/pkg/voxel"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]

	fmt.Println("================================")
	fmt.Println("COLORSTACK3D - COLOR IMAGE TO MULTI-MATERIAL 3D PRINT")
	fmt.Println("================================")

	startTime := time.Now()

	switch command {
	case "calibrate":
		runCalibrate(args)
	case "extract":
		runExtract(args)
	case "convert":
		runConvert(args)
	case "init-config":
		runInitConfig(args)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		usage()
		os.Exit(1)
	}

	fmt.Printf("\nCompleted successfully in %.2f seconds!\n", time.Since(startTime).Seconds())
	recordRun(command)
}

func usage() {
	fmt.Println("Usage: colorstack3d <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  calibrate    Synthesize the printable color calibration board")
	fmt.Println("  extract      Build a color lookup table from a board photograph")
	fmt.Println("  convert      Convert an image into printable 3D geometry")
	fmt.Println("  init-config  Write a default configuration file")
	fmt.Println()
	fmt.Println("Run 'colorstack3d <command> -h' for command options.")
}

// loadConfig reads the shared configuration, falling back to defaults
// when the file does not exist.
func loadConfig(path string) *config.Config {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// resolveMode parses the color mode, preferring the command-line override
// over the configured value.
func resolveMode(override, configured string) palette.Mode {
	name := configured
	if override != "" {
		name = override
	}
	mode, err := palette.ParseMode(name)
	if err != nil {
		log.Fatalf("Invalid color mode: %v", err)
	}
	return mode
}

func runCalibrate(args []string) {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	configPath := fs.String("config", "colorstack3d.yaml", "Configuration file")
	modeName := fs.String("mode", "", "Color mode override (CMYW or RYBW)")
	outputDir := fs.String("output", "calibration", "Output directory")
	layerPreviews := fs.Bool("layer-previews", false, "Save one preview PNG per print layer")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	mode := resolveMode(*modeName, cfg.Calibration.ColorMode)

	backing, ok := mode.SlotIndex(cfg.Calibration.BackingMaterial)
	if !ok {
		log.Fatalf("Backing material %q is not a %s slot", cfg.Calibration.BackingMaterial, mode)
	}

	cal := pipeline.NewCalibrator(&pipeline.CalibrateParams{
		Mode:               mode,
		BlockSizeMm:        cfg.Calibration.BlockSizeMm,
		GapMm:              cfg.Calibration.GapMm,
		Backing:            backing,
		BackingThicknessMm: cfg.Calibration.BackingThicknessMm,
		LayerHeightMm:      cfg.Printer.LayerHeightMm,
		NozzleWidthMm:      cfg.Printer.NozzleWidthMm,
		OutputDir:          *outputDir,
		NumCores:           cfg.Printer.NumCores,
		SaveLayerPreviews:  *layerPreviews,
	})

	fmt.Printf("Synthesizing %s calibration board...\n", mode)
	if err := cal.Process(); err != nil {
		log.Fatalf("Calibration board synthesis failed: %v", err)
	}
	fmt.Printf("\nPrint the board with the %s material set, photograph it head-on,\n", mode)
	fmt.Println("then run 'colorstack3d extract' on the photograph.")
}

func runExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", "colorstack3d.yaml", "Configuration file")
	photoPath := fs.String("photo", "", "Photograph of the printed calibration board")
	pointsSpec := fs.String("points", "", "Board corners as 'x,y;x,y;x,y;x,y' in click order TL;TR;BR;BL")
	lutPath := fs.String("lut", "colors.lut", "Output lookup table file")
	overlayPath := fs.String("overlay", "", "Optional sample-position overlay PNG")
	fs.Parse(args)

	if *photoPath == "" || *pointsSpec == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)

	corners, err := parsePoints(*pointsSpec)
	if err != nil {
		log.Fatalf("Invalid -points: %v", err)
	}

	ext := pipeline.NewExtractor(&pipeline.ExtractParams{
		PhotoPath: *photoPath,
		Corners:   corners,
		Sampling: sampler.Options{
			OffsetX: cfg.Extraction.OffsetX,
			OffsetY: cfg.Extraction.OffsetY,
			Zoom:    cfg.Extraction.Zoom,
			Barrel:  cfg.Extraction.BarrelDistortion,
			Workers: cfg.Printer.NumCores,
		},
		AutoWhiteBalance: cfg.Extraction.AutoWhiteBalance,
		VignetteFix:      cfg.Extraction.VignetteFix,
		OutputLUT:        *lutPath,
		OverlayPath:      *overlayPath,
	})

	fmt.Println("Extracting color lookup table from photograph...")
	if err := ext.Process(); err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}
	fmt.Println("\nInspect the overlay image if sample positions look off, then")
	fmt.Println("tune extraction offset/zoom/barrel in the configuration file.")
}

func runConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	configPath := fs.String("config", "colorstack3d.yaml", "Configuration file")
	imagePath := fs.String("image", "", "Input image to convert (PNG or JPEG)")
	lutPath := fs.String("lut", "colors.lut", "Calibration lookup table file")
	modeName := fs.String("mode", "", "Color mode override (CMYW or RYBW)")
	outputDir := fs.String("output", "model", "Output directory")
	fs.Parse(args)

	if *imagePath == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	mode := resolveMode(*modeName, cfg.Calibration.ColorMode)

	structure, err := voxel.ParseStructureMode(cfg.Conversion.StructureMode)
	if err != nil {
		log.Fatalf("Invalid structure mode: %v", err)
	}

	conv := pipeline.NewConverter(&pipeline.ConvertParams{
		ImagePath:             *imagePath,
		LUTPath:               *lutPath,
		Mode:                  mode,
		Filter:                outlierFilter(cfg, mode),
		Structure:             structure,
		AutoBackgroundRemoval: cfg.Conversion.AutoBackgroundRemoval,
		BackgroundTolerance:   cfg.Conversion.BackgroundTolerance,
		TargetWidthMm:         cfg.Conversion.TargetWidthMm,
		BackingThicknessMm:    cfg.Conversion.BackingThicknessMm,
		LayerHeightMm:         cfg.Printer.LayerHeightMm,
		NozzleWidthMm:         cfg.Printer.NozzleWidthMm,
		OutputDir:             *outputDir,
		NumCores:              cfg.Printer.NumCores,
	})

	fmt.Printf("Converting %s using %s...\n", *imagePath, *lutPath)
	if err := conv.Process(); err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}
	fmt.Println("\nSlice the 3MF with one extruder per material, or load the")
	fmt.Println("per-material STL files individually.")
}

func runInitConfig(args []string) {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	configPath := fs.String("config", "colorstack3d.yaml", "Configuration file to create")
	fs.Parse(args)

	if _, err := os.Stat(*configPath); err == nil {
		log.Fatalf("Refusing to overwrite existing %s", *configPath)
	}
	if err := config.CreateDefaultConfigFile(*configPath); err != nil {
		log.Fatalf("Failed to create configuration file: %v", err)
	}
	fmt.Printf("Wrote default configuration to %s\n", *configPath)
}

// outlierFilter builds the matcher's calibration filter from the
// configuration, starting from the mode's tuned defaults.
func outlierFilter(cfg *config.Config, mode palette.Mode) match.OutlierFilter {
	f := match.DefaultOutlierFilter(mode)
	f.Enabled = cfg.OutlierFilter.Enabled
	f.Reference = lut.RGB(cfg.OutlierFilter.Reference)
	f.MaxDistance = cfg.OutlierFilter.MaxDistance

	if name := cfg.OutlierFilter.RequiredMaterial; name != "" {
		m, ok := mode.SlotIndex(name)
		if !ok {
			log.Fatalf("Outlier filter material %q is not a %s slot", name, mode)
		}
		f.RequiredMaterial = m
	}
	return f
}

// parsePoints parses the four board corners from 'x,y;x,y;x,y;x,y'.
func parsePoints(spec string) ([]rectify.Point, error) {
	parts := strings.Split(spec, ";")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 points, got %d", len(parts))
	}

	pts := make([]rectify.Point, 0, 4)
	for i, part := range parts {
		coords := strings.Split(strings.TrimSpace(part), ",")
		if len(coords) != 2 {
			return nil, fmt.Errorf("point %d: expected 'x,y', got %q", i+1, part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("point %d: bad x coordinate: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("point %d: bad y coordinate: %w", i+1, err)
		}
		pts = append(pts, rectify.Point{X: x, Y: y})
	}
	return pts, nil
}

// recordRun bumps the persistent usage counter. Failures only warn; the
// counter never affects results.
func recordRun(command string) {
	dir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("Warning: could not locate config dir for usage stats: %v", err)
		return
	}
	if _, err := stats.Bump(filepath.Join(dir, "colorstack3d", "stats.yaml"), command); err != nil {
		log.Printf("Warning: could not record usage stats: %v", err)
	}
}
