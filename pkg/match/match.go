// Package match maps arbitrary image colors onto the closest calibrated
// material stack. It builds a k-d tree over the measured lookup table
// colors (after outlier filtering) and answers nearest-neighbor queries in
// RGB space.
package match

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"

	"colorstack3d/pkg/lut"
	"colorstack3d/pkg/palette"
)

// colorEntry is one surviving lookup-table entry placed in RGB space.
type colorEntry struct {
	kdtree.Point
	code palette.StackCode
}

func (e colorEntry) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(colorEntry)
	return e.Point[d] - q.Point[d]
}

func (e colorEntry) Dims() int { return 3 }

func (e colorEntry) Distance(c kdtree.Comparable) float64 {
	q := c.(colorEntry)
	return e.Point.Distance(q.Point)
}

// colorEntries implements kdtree.Interface.
type colorEntries []colorEntry

func (e colorEntries) Index(i int) kdtree.Comparable { return e[i] }
func (e colorEntries) Len() int                      { return len(e) }
func (e colorEntries) Slice(start, end int) kdtree.Interface {
	return e[start:end]
}
func (e colorEntries) Pivot(d kdtree.Dim) int {
	return plane{Dim: d, colorEntries: e}.Pivot()
}

type plane struct {
	kdtree.Dim
	colorEntries
}

func (p plane) Less(i, j int) bool {
	return p.colorEntries[i].Point[p.Dim] < p.colorEntries[j].Point[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.colorEntries = p.colorEntries[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.colorEntries[i], p.colorEntries[j] = p.colorEntries[j], p.colorEntries[i]
}

// Matcher answers nearest-stack queries against a filtered lookup table.
type Matcher struct {
	tree  *kdtree.Tree
	table *lut.Table
}

// NewMatcher indexes the lookup table, dropping entries the outlier filter
// flags as implausible. Entries are inserted in ascending stack-code
// order, which keeps tree construction, and with it tie-breaking between
// equally distant colors, deterministic.
func NewMatcher(table *lut.Table, filter OutlierFilter) (*Matcher, error) {
	entries := make(colorEntries, 0, palette.NumCodes)
	for i := 0; i < palette.NumCodes; i++ {
		code := palette.StackCode(i)
		c := table.At(code)
		if filter.Ambiguous(c, code) {
			continue
		}
		entries = append(entries, colorEntry{
			Point: kdtree.Point{float64(c[0]), float64(c[1]), float64(c[2])},
			code:  code,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("outlier filter rejected every calibration entry")
	}

	return &Matcher{
		tree:  kdtree.New(entries, false),
		table: table,
	}, nil
}

// Match returns the calibrated color closest to c and its stack code.
func (m *Matcher) Match(c lut.RGB) (lut.RGB, palette.StackCode) {
	q := colorEntry{Point: kdtree.Point{float64(c[0]), float64(c[1]), float64(c[2])}}
	got, _ := m.tree.Nearest(q)
	e := got.(colorEntry)
	return m.table.At(e.code), e.code
}

// MatchImage matches every pixel of img. It returns the stack code per
// pixel in row-major order and a preview image showing the matched
// calibrated colors. Rows are processed by a worker pool writing to
// disjoint result ranges, so the output is independent of scheduling.
func (m *Matcher) MatchImage(img *image.RGBA, workers int) ([]palette.StackCode, *image.RGBA) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	codes := make([]palette.StackCode, width*height)
	preview := image.NewRGBA(image.Rect(0, 0, width, height))

	var wg sync.WaitGroup
	rowCh := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rowCh {
				for x := 0; x < width; x++ {
					px := img.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
					matched, code := m.Match(lut.RGB{px.R, px.G, px.B})
					codes[y*width+x] = code

					i := preview.PixOffset(x, y)
					preview.Pix[i+0] = matched[0]
					preview.Pix[i+1] = matched[1]
					preview.Pix[i+2] = matched[2]
					preview.Pix[i+3] = px.A
				}
			}
		}()
	}
	for y := 0; y < height; y++ {
		rowCh <- y
	}
	close(rowCh)
	wg.Wait()

	return codes, preview
}

// Size returns the number of indexed entries after filtering.
func (m *Matcher) Size() int {
	return m.tree.Len()
}
