// Package mesher converts a material volume into watertight triangle
// meshes, one per material, using per-row run-length encoding: every
// maximal horizontal span of a material becomes a single axis-aligned box
// instead of one cube per voxel. The result deliberately trades face count
// for robustness; apart from vertex merging no mesh optimization happens.
package mesher

import (
	"image/color"
	"runtime"
	"sync"

	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/voxel"
)

// ShrinkEpsilon is subtracted from every box on the X and Y sides so that
// neighboring material boxes never share a coincident face, which would
// z-fight in slicers and confuse some printers' multi-material merging.
// Boxes are not shrunk in Z: layers of the same material must fuse.
const ShrinkEpsilon = 0.02

// Scale converts voxel indices into millimeters: XY is the extrusion width
// of one voxel column, Z the print layer height.
type Scale struct {
	XY float64
	Z  float64
}

// Mesh is a triangulated solid for one material: deduplicated vertices and
// index triples, plus the display name and color carried into export.
type Mesh struct {
	Name      string
	Color     color.RGBA
	Vertices  [][3]float32
	Triangles [][3]uint32
}

// span is one maximal horizontal run of the target material: voxels
// [x0,x1) at row y of layer z.
type span struct {
	z, y, x0, x1 int
}

// FromVolume meshes all voxels of the given material. It returns nil when
// the material does not occur anywhere in the volume; an absent material
// is not an error. Rows are scanned by a pool of workers writing into
// precomputed disjoint ranges, so the span order, and with it the whole
// mesh, is deterministic.
func FromVolume(vol *voxel.Volume, m palette.Material, scale Scale, workers int) *Mesh {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	spans := collectSpans(vol, m, workers)
	if len(spans) == 0 {
		return nil
	}
	return triangulate(spans, scale)
}

// collectSpans run-length encodes every (layer, row) of the volume. A
// first counting pass sizes the result so each layer's workers write to a
// disjoint, position-indexed range and no appends race or reorder.
func collectSpans(vol *voxel.Volume, m palette.Material, workers int) []span {
	counts := make([]int, vol.Layers)
	for z := 0; z < vol.Layers; z++ {
		n := 0
		for y := 0; y < vol.Height; y++ {
			n += countRuns(vol.Row(y, z), m)
		}
		counts[z] = n
	}

	offsets := make([]int, vol.Layers+1)
	for z := 0; z < vol.Layers; z++ {
		offsets[z+1] = offsets[z] + counts[z]
	}
	spans := make([]span, offsets[vol.Layers])

	var wg sync.WaitGroup
	layerCh := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range layerCh {
				i := offsets[z]
				for y := 0; y < vol.Height; y++ {
					row := vol.Row(y, z)
					for x := 0; x < len(row); {
						if row[x] != m {
							x++
							continue
						}
						x0 := x
						for x < len(row) && row[x] == m {
							x++
						}
						spans[i] = span{z: z, y: y, x0: x0, x1: x}
						i++
					}
				}
			}
		}()
	}
	for z := 0; z < vol.Layers; z++ {
		layerCh <- z
	}
	close(layerCh)
	wg.Wait()

	return spans
}

func countRuns(row []palette.Material, m palette.Material) int {
	n := 0
	inRun := false
	for _, v := range row {
		if v == m {
			if !inRun {
				n++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	return n
}

// boxFaces lists the 12 triangles of a box as indices into its 8 corners,
// wound counter-clockwise seen from outside.
var boxFaces = [12][3]int{
	{0, 2, 1}, {0, 3, 2}, // bottom (-Z)
	{4, 5, 6}, {4, 6, 7}, // top (+Z)
	{0, 1, 5}, {0, 5, 4}, // front (-Y)
	{2, 3, 7}, {2, 7, 6}, // back (+Y)
	{3, 0, 4}, {3, 4, 7}, // left (-X)
	{1, 2, 6}, {1, 6, 5}, // right (+X)
}

// triangulate emits one 12-triangle box per span, merges vertices with
// exactly equal coordinates, and drops degenerate triangles as well as
// coincident duplicate faces. Duplicates arise where boxes of the same
// footprint stack in Z: the top of one box and the bottom of the next
// cover the same rectangle and are interior to the fused solid.
func triangulate(spans []span, scale Scale) *Mesh {
	mesh := &Mesh{
		Vertices: make([][3]float32, 0, len(spans)*8),
	}
	seen := make(map[[3]float32]uint32, len(spans)*8)

	intern := func(v [3]float32) uint32 {
		if idx, ok := seen[v]; ok {
			return idx
		}
		idx := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, v)
		seen[v] = idx
		return idx
	}

	candidates := make([][3]uint32, 0, len(spans)*12)
	for _, s := range spans {
		x0 := float32(float64(s.x0)*scale.XY + ShrinkEpsilon)
		x1 := float32(float64(s.x1)*scale.XY - ShrinkEpsilon)
		y0 := float32(float64(s.y)*scale.XY + ShrinkEpsilon)
		y1 := float32(float64(s.y+1)*scale.XY - ShrinkEpsilon)
		z0 := float32(float64(s.z) * scale.Z)
		z1 := float32(float64(s.z+1) * scale.Z)

		corners := [8][3]float32{
			{x0, y0, z0}, {x1, y0, z0}, {x1, y1, z0}, {x0, y1, z0},
			{x0, y0, z1}, {x1, y0, z1}, {x1, y1, z1}, {x0, y1, z1},
		}
		var idx [8]uint32
		for i, c := range corners {
			idx[i] = intern(c)
		}

		for _, f := range boxFaces {
			tri := [3]uint32{idx[f[0]], idx[f[1]], idx[f[2]]}
			if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
				continue
			}
			candidates = append(candidates, tri)
		}
	}

	// Count faces by their unordered vertex set; a face that appears twice
	// is an interior wall between two fused boxes and both copies go.
	occurrences := make(map[[3]uint32]int, len(candidates))
	for _, tri := range candidates {
		occurrences[canonical(tri)]++
	}
	mesh.Triangles = make([][3]uint32, 0, len(candidates))
	for _, tri := range candidates {
		if occurrences[canonical(tri)] == 1 {
			mesh.Triangles = append(mesh.Triangles, tri)
		}
	}
	return mesh
}

// canonical sorts a triangle's vertex indices so that the two windings of
// a coincident face map to the same key.
func canonical(tri [3]uint32) [3]uint32 {
	if tri[0] > tri[1] {
		tri[0], tri[1] = tri[1], tri[0]
	}
	if tri[1] > tri[2] {
		tri[1], tri[2] = tri[2], tri[1]
	}
	if tri[0] > tri[1] {
		tri[0], tri[1] = tri[1], tri[0]
	}
	return tri
}
