package export

import (
	"archive/zip"
	"bytes"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"colorstack3d/pkg/mesher"
)

// unitTriangle is a single-triangle mesh in the XY plane.
func unitTriangle(name string) *mesher.Mesh {
	return &mesher.Mesh{
		Name:  name,
		Color: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Vertices: [][3]float32{
			{0, 0, 0},
			{1, 0, 0},
			{0, 1, 0},
		},
		Triangles: [][3]uint32{{0, 1, 2}},
	}
}

func TestWriteSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.stl")
	if err := WriteSTL(path, unitTriangle("White")); err != nil {
		t.Fatalf("WriteSTL failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// 80-byte header + 4-byte count + one 50-byte triangle record.
	if len(data) != 80+4+50 {
		t.Fatalf("STL file is %d bytes, want %d", len(data), 80+4+50)
	}
	if count := uint32(data[80]) | uint32(data[81])<<8 | uint32(data[82])<<16 | uint32(data[83])<<24; count != 1 {
		t.Errorf("STL triangle count = %d, want 1", count)
	}
	if !bytes.HasPrefix(data, []byte("colorstack3d White")) {
		t.Error("STL header does not carry the mesh name")
	}
}

func TestFaceNormal(t *testing.T) {
	n := faceNormal([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})
	if n != [3]float32{0, 0, 1} {
		t.Errorf("faceNormal of a CCW XY triangle = %v, want +Z", n)
	}
}

func TestWrite3MFNamesObjectsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.3mf")
	meshes := []*mesher.Mesh{
		unitTriangle("White"),
		nil, // material with no voxels must be skipped
		unitTriangle("Magenta"),
		unitTriangle("Yellow"),
	}
	if err := Write3MF(path, meshes); err != nil {
		t.Fatalf("Write3MF failed: %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("result is not a zip container: %v", err)
	}
	defer zr.Close()

	var names []string
	var modelData string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "3D/3dmodel.model" {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			raw, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatal(err)
			}
			modelData = string(raw)
		}
	}

	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "3D/3dmodel.model"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("container is missing part %s", want)
		}
	}

	// Object names must appear in emission order, skipping the nil mesh.
	iWhite := strings.Index(modelData, `name="White"`)
	iMagenta := strings.Index(modelData, `name="Magenta"`)
	iYellow := strings.Index(modelData, `name="Yellow"`)
	if iWhite < 0 || iMagenta < 0 || iYellow < 0 {
		t.Fatalf("model XML is missing object names:\n%s", modelData)
	}
	if !(iWhite < iMagenta && iMagenta < iYellow) {
		t.Error("objects are not emitted in slot order")
	}
	if strings.Count(modelData, "<object") != 3 {
		t.Errorf("expected 3 objects, got %d", strings.Count(modelData, "<object"))
	}
}

func TestWrite3MFAllEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.3mf")
	if err := Write3MF(path, []*mesher.Mesh{nil, nil}); err == nil {
		t.Error("Write3MF accepted an export with no geometry at all")
	}
}
