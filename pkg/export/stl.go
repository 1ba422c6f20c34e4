// Package export writes the generated solids to disk: one binary STL per
// material for quick inspection, and a single 3MF container holding every
// material as a named object for multi-material slicing.
package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"colorstack3d/pkg/mesher"
)

// WriteSTL saves a mesh in binary STL format:
// an 80-byte header, a uint32 triangle count, then 50 bytes per triangle
// (normal, three vertices, attribute word), all little-endian.
func WriteSTL(path string, m *mesher.Mesh) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating STL file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	var header [80]byte
	copy(header[:], "colorstack3d "+m.Name)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing STL header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Triangles))); err != nil {
		return fmt.Errorf("writing STL triangle count: %w", err)
	}

	for _, tri := range m.Triangles {
		a := m.Vertices[tri[0]]
		b := m.Vertices[tri[1]]
		c := m.Vertices[tri[2]]

		record := [12]float32{}
		n := faceNormal(a, b, c)
		copy(record[0:3], n[:])
		copy(record[3:6], a[:])
		copy(record[6:9], b[:])
		copy(record[9:12], c[:])
		if err := binary.Write(w, binary.LittleEndian, record); err != nil {
			return fmt.Errorf("writing STL triangle: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return fmt.Errorf("writing STL attribute: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing STL file: %w", err)
	}
	return file.Close()
}

// faceNormal returns the unit normal of the triangle (a, b, c) with
// counter-clockwise winding.
func faceNormal(a, b, c [3]float32) [3]float32 {
	ux, uy, uz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
	vx, vy, vz := c[0]-a[0], c[1]-a[1], c[2]-a[2]

	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx

	mag := float32(math.Sqrt(float64(nx*nx + ny*ny + nz*nz)))
	if mag == 0 {
		return [3]float32{0, 0, 1}
	}
	return [3]float32{nx / mag, ny / mag, nz / mag}
}
