package mesher

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"colorstack3d/pkg/palette"
	"colorstack3d/pkg/voxel"
)

var testScale = Scale{XY: 0.4, Z: 0.2}

func TestSingleRunProducesOneBox(t *testing.T) {
	vol := voxel.NewVolume(10, 3, 2)
	for x := 2; x < 9; x++ {
		vol.Set(x, 1, 0, 1)
	}

	mesh := FromVolume(vol, 1, testScale, 1)
	if mesh == nil {
		t.Fatal("expected a mesh for material 1")
	}
	if len(mesh.Vertices) != 8 {
		t.Errorf("got %d vertices after merge, want 8", len(mesh.Vertices))
	}
	if len(mesh.Triangles) != 12 {
		t.Errorf("got %d triangles, want 12", len(mesh.Triangles))
	}

	// The box must span the run's X extent, shrunk by epsilon.
	minX, maxX := float32(1e9), float32(-1e9)
	for _, v := range mesh.Vertices {
		if v[0] < minX {
			minX = v[0]
		}
		if v[0] > maxX {
			maxX = v[0]
		}
	}
	wantMin := float32(2*testScale.XY + ShrinkEpsilon)
	wantMax := float32(9*testScale.XY - ShrinkEpsilon)
	if minX != wantMin || maxX != wantMax {
		t.Errorf("box X extent [%g,%g], want [%g,%g]", minX, maxX, wantMin, wantMax)
	}
}

func TestSeparatedRunsProduceDisjointBoxes(t *testing.T) {
	vol := voxel.NewVolume(10, 1, 1)
	vol.Set(0, 0, 0, 2)
	vol.Set(1, 0, 0, 2)
	// gap at x=2
	vol.Set(3, 0, 0, 2)

	mesh := FromVolume(vol, 2, testScale, 1)
	if mesh == nil {
		t.Fatal("expected a mesh for material 2")
	}
	if len(mesh.Vertices) != 16 {
		t.Errorf("got %d vertices, want 16 (two disjoint boxes)", len(mesh.Vertices))
	}
	if len(mesh.Triangles) != 24 {
		t.Errorf("got %d triangles, want 24", len(mesh.Triangles))
	}
}

func TestStackedColumnFusesInZ(t *testing.T) {
	// Same footprint on three consecutive layers: the four interior walls
	// (two coincident pairs) must disappear and the shared rim vertices
	// must merge, leaving a single watertight column shell.
	vol := voxel.NewVolume(4, 1, 3)
	for z := 0; z < 3; z++ {
		vol.Set(1, 0, z, 3)
		vol.Set(2, 0, z, 3)
	}

	mesh := FromVolume(vol, 3, testScale, 1)
	if mesh == nil {
		t.Fatal("expected a mesh for material 3")
	}
	// 3 boxes, top/bottom rims shared: 4 rings of 4 vertices.
	if len(mesh.Vertices) != 16 {
		t.Errorf("got %d vertices, want 16", len(mesh.Vertices))
	}
	// 3 boxes x 12 = 36 triangles, minus 2 interior walls x 2 pairs x 2
	// triangles = 8 dropped.
	if len(mesh.Triangles) != 28 {
		t.Errorf("got %d triangles, want 28", len(mesh.Triangles))
	}
}

func TestAbsentMaterialYieldsNoMesh(t *testing.T) {
	vol := voxel.NewVolume(4, 4, 4)
	vol.Set(0, 0, 0, 1)

	if mesh := FromVolume(vol, 2, testScale, 1); mesh != nil {
		t.Errorf("material 2 never occurs but produced %d triangles", len(mesh.Triangles))
	}
}

func TestMeshingIsDeterministicAcrossWorkerCounts(t *testing.T) {
	vol := voxel.NewVolume(17, 13, 11)
	for z := 0; z < vol.Layers; z++ {
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				if (x*7+y*3+z*5)%4 == 0 {
					vol.Set(x, y, z, 1)
				}
			}
		}
	}

	reference := FromVolume(vol, 1, testScale, 1)
	for _, workers := range []int{2, 4, 8} {
		mesh := FromVolume(vol, 1, testScale, workers)
		if diff := cmp.Diff(reference, mesh); diff != "" {
			t.Fatalf("mesh differs with %d workers (-1 worker +%d workers):\n%s", workers, workers, diff)
		}
	}
}

func TestTriangleWindingIsOutward(t *testing.T) {
	vol := voxel.NewVolume(2, 2, 2)
	vol.Set(0, 0, 0, 0)

	mesh := FromVolume(vol, 0, testScale, 1)
	if mesh == nil {
		t.Fatal("expected a mesh")
	}

	// Centroid of a single box is inside it; every face normal must point
	// away from the centroid.
	var c [3]float32
	for _, v := range mesh.Vertices {
		c[0] += v[0]
		c[1] += v[1]
		c[2] += v[2]
	}
	n := float32(len(mesh.Vertices))
	c[0] /= n
	c[1] /= n
	c[2] /= n

	for i, tri := range mesh.Triangles {
		a := mesh.Vertices[tri[0]]
		b := mesh.Vertices[tri[1]]
		d := mesh.Vertices[tri[2]]

		ux, uy, uz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
		vx, vy, vz := d[0]-a[0], d[1]-a[1], d[2]-a[2]
		nx, ny, nz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx

		ox, oy, oz := a[0]-c[0], a[1]-c[1], a[2]-c[2]
		if nx*ox+ny*oy+nz*oz <= 0 {
			t.Fatalf("triangle %d has inward-facing normal", i)
		}
	}
}

func BenchmarkFromVolume(b *testing.B) {
	vol := voxel.NewVolume(128, 128, 11)
	for z := 0; z < vol.Layers; z++ {
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				vol.Set(x, y, z, palette.Material((x/3+y/2+z)%4))
			}
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FromVolume(vol, 1, testScale, 4)
	}
}
