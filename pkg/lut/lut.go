// Package lut defines the color lookup table produced by calibration
// extraction and consumed by image conversion. The table holds one measured
// RGB triple for each of the 1024 possible five-layer material stacks and
// is the only long-lived artifact in the pipeline.
package lut

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"colorstack3d/pkg/palette"
)

// GridSize is the edge length of the logical calibration grid. Cell (r,c)
// corresponds to stack code r*GridSize+c.
const GridSize = 32

// TableBytes is the size of the persisted binary form: 32x32 cells with
// three 8-bit channels each, row-major.
const TableBytes = GridSize * GridSize * 3

// ErrMalformed is returned when a calibration file cannot be interpreted.
var ErrMalformed = errors.New("calibration data unreadable")

// RGB is one measured color sample with 8-bit channels.
type RGB [3]uint8

// Table is the measured color for every stack code.
type Table [palette.NumCodes]RGB

// At returns the measured color for a stack code.
func (t *Table) At(code palette.StackCode) RGB {
	return t[code]
}

// Set records the measured color for a stack code.
func (t *Table) Set(code palette.StackCode, c RGB) {
	t[code] = c
}

// Cell returns the measured color at grid position (row, col).
func (t *Table) Cell(row, col int) RGB {
	return t[row*GridSize+col]
}

// Bytes serializes the table into its flat binary form.
func (t *Table) Bytes() []byte {
	buf := make([]byte, 0, TableBytes)
	for _, c := range t {
		buf = append(buf, c[0], c[1], c[2])
	}
	return buf
}

// FromBytes parses the flat binary form. Any size other than exactly
// TableBytes is rejected as malformed.
func FromBytes(data []byte) (*Table, error) {
	if len(data) != TableBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformed, len(data), TableBytes)
	}
	var t Table
	for i := range t {
		t[i] = RGB{data[3*i], data[3*i+1], data[3*i+2]}
	}
	return &t, nil
}

// Load reads a persisted table. A missing file is reported as-is so callers
// can distinguish "never calibrated" from a corrupt file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file %s: %w", path, err)
	}
	t, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("calibration file %s: %w", path, err)
	}
	return t, nil
}

// Save writes the table, replacing any previous calibration at path. The
// data is written to a temporary file in the same directory and renamed
// into place, so a failed write never leaves a truncated file behind that
// Load would accept.
func Save(path string, t *Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating calibration directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lut-*")
	if err != nil {
		return fmt.Errorf("creating temporary calibration file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(t.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing calibration file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing calibration file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing calibration file: %w", err)
	}
	return nil
}
