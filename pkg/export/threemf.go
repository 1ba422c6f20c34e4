package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"

	"colorstack3d/pkg/mesher"
)

// The minimal set of container parts a 3MF consumer requires.
const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
 <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
 <Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
 <Relationship Id="rel0" Target="/3D/3dmodel.model" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>`
)

type modelXML struct {
	XMLName   xml.Name     `xml:"model"`
	Unit      string       `xml:"unit,attr"`
	Lang      string       `xml:"xml:lang,attr"`
	Namespace string       `xml:"xmlns,attr"`
	Resources resourcesXML `xml:"resources"`
	Build     buildXML     `xml:"build"`
}

type resourcesXML struct {
	Materials basematerialsXML `xml:"basematerials"`
	Objects   []objectXML      `xml:"object"`
}

type basematerialsXML struct {
	ID    int           `xml:"id,attr"`
	Bases []baseMatXML  `xml:"base"`
}

type baseMatXML struct {
	Name         string `xml:"name,attr"`
	DisplayColor string `xml:"displaycolor,attr"`
}

type objectXML struct {
	ID     int     `xml:"id,attr"`
	Type   string  `xml:"type,attr"`
	Name   string  `xml:"name,attr"`
	PID    int     `xml:"pid,attr"`
	PIndex int     `xml:"pindex,attr"`
	Mesh   meshXML `xml:"mesh"`
}

type meshXML struct {
	Vertices  verticesXML  `xml:"vertices"`
	Triangles trianglesXML `xml:"triangles"`
}

type verticesXML struct {
	Vertices []vertexXML `xml:"vertex"`
}

type vertexXML struct {
	X float32 `xml:"x,attr"`
	Y float32 `xml:"y,attr"`
	Z float32 `xml:"z,attr"`
}

type trianglesXML struct {
	Triangles []triangleXML `xml:"triangle"`
}

type triangleXML struct {
	V1 uint32 `xml:"v1,attr"`
	V2 uint32 `xml:"v2,attr"`
	V3 uint32 `xml:"v3,attr"`
}

type buildXML struct {
	Items []itemXML `xml:"item"`
}

type itemXML struct {
	ObjectID int `xml:"objectid,attr"`
}

// Write3MF packages the meshes into a 3MF container at path. Each mesh
// becomes one named model object; objects are emitted in slice order, so
// callers pass meshes in material slot order and downstream tools see the
// slot names unchanged. Nil meshes (materials with no voxels) are skipped.
func Write3MF(path string, meshes []*mesher.Mesh) error {
	model := modelXML{
		Unit:      "millimeter",
		Lang:      "en-US",
		Namespace: "http://schemas.microsoft.com/3dmanufacturing/core/2015/02",
	}
	model.Resources.Materials.ID = 1

	nextID := 2
	for _, m := range meshes {
		if m == nil {
			continue
		}
		pindex := len(model.Resources.Materials.Bases)
		model.Resources.Materials.Bases = append(model.Resources.Materials.Bases, baseMatXML{
			Name:         m.Name,
			DisplayColor: fmt.Sprintf("#%02X%02X%02X%02X", m.Color.R, m.Color.G, m.Color.B, m.Color.A),
		})

		obj := objectXML{
			ID:     nextID,
			Type:   "model",
			Name:   m.Name,
			PID:    1,
			PIndex: pindex,
		}
		obj.Mesh.Vertices.Vertices = make([]vertexXML, len(m.Vertices))
		for i, v := range m.Vertices {
			obj.Mesh.Vertices.Vertices[i] = vertexXML{X: v[0], Y: v[1], Z: v[2]}
		}
		obj.Mesh.Triangles.Triangles = make([]triangleXML, len(m.Triangles))
		for i, tri := range m.Triangles {
			obj.Mesh.Triangles.Triangles[i] = triangleXML{V1: tri[0], V2: tri[1], V3: tri[2]}
		}

		model.Resources.Objects = append(model.Resources.Objects, obj)
		model.Build.Items = append(model.Build.Items, itemXML{ObjectID: nextID})
		nextID++
	}

	if len(model.Resources.Objects) == 0 {
		return fmt.Errorf("no non-empty meshes to export")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating 3MF file: %w", err)
	}
	defer file.Close()

	zw := zip.NewWriter(file)

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("creating container part %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return fmt.Errorf("writing container part %s: %w", part.name, err)
		}
	}

	w, err := zw.Create("3D/3dmodel.model")
	if err != nil {
		return fmt.Errorf("creating model part: %w", err)
	}
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("writing model header: %w", err)
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(model); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing 3MF container: %w", err)
	}
	return file.Close()
}
