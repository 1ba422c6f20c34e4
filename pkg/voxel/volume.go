// Package voxel holds the 3D material-index volume that sits between color
// matching and mesh generation, and the builder that assembles it from a
// matched image.
package voxel

import (
	"fmt"

	"colorstack3d/pkg/palette"
)

// Volume is a [layers][height][width] grid of material assignments stored
// as a flat array in layer-major order. Layer 0 is the first deposited
// print layer.
type Volume struct {
	Width  int
	Height int
	Layers int

	data []palette.Material
}

// NewVolume allocates a volume with every voxel set to Empty.
func NewVolume(width, height, layers int) *Volume {
	v := &Volume{
		Width:  width,
		Height: height,
		Layers: layers,
		data:   make([]palette.Material, width*height*layers),
	}
	for i := range v.data {
		v.data[i] = palette.Empty
	}
	return v
}

func (v *Volume) index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the material at voxel (x, y, z).
func (v *Volume) At(x, y, z int) palette.Material {
	return v.data[v.index(x, y, z)]
}

// Set assigns the material at voxel (x, y, z).
func (v *Volume) Set(x, y, z int, m palette.Material) {
	v.data[v.index(x, y, z)] = m
}

// Row returns the voxel row at (y, z) as a shared slice. Callers must not
// hold it across mutations.
func (v *Volume) Row(y, z int) []palette.Material {
	start := v.index(0, y, z)
	return v.data[start : start+v.Width]
}

// CountMaterial returns the number of voxels assigned to material m.
func (v *Volume) CountMaterial(m palette.Material) int {
	n := 0
	for _, voxel := range v.data {
		if voxel == m {
			n++
		}
	}
	return n
}

// Equal reports whether two volumes have identical dimensions and contents.
func (v *Volume) Equal(o *Volume) bool {
	if o == nil || v.Width != o.Width || v.Height != o.Height || v.Layers != o.Layers {
		return false
	}
	for i := range v.data {
		if v.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Materials returns which material slots appear at least once.
func (v *Volume) Materials() [palette.NumMaterials]bool {
	var present [palette.NumMaterials]bool
	for _, m := range v.data {
		if m.Valid() {
			present[m] = true
		}
	}
	return present
}

func (v *Volume) String() string {
	return fmt.Sprintf("Volume(%dx%dx%d)", v.Width, v.Height, v.Layers)
}
