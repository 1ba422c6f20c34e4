// Package rectify straightens a photographed calibration board: four
// operator-picked corner points define a planar homography that maps the
// board onto a fixed-size square image, optionally followed by white
// balance and vignette flattening so grid sampling sees even illumination.
package rectify

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientPoints is returned when rectification is attempted with
// fewer than the four required corner points.
var ErrInsufficientPoints = errors.New("need 4 corner points")

// Point is a position on the photograph in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Points collects the four corner picks in click order: top-left,
// top-right, bottom-right, bottom-left. It is invalid until all four are
// present.
type Points struct {
	pts []Point
}

// Add records the next corner point. Adding a fifth point is an error.
func (p *Points) Add(pt Point) error {
	if len(p.pts) >= 4 {
		return fmt.Errorf("already have 4 corner points")
	}
	p.pts = append(p.pts, pt)
	return nil
}

// Len returns the number of points recorded so far.
func (p *Points) Len() int {
	return len(p.pts)
}

// Complete reports whether all four corners have been picked.
func (p *Points) Complete() bool {
	return len(p.pts) == 4
}

// Corners returns the four points in click order, or
// ErrInsufficientPoints while the pick is incomplete.
func (p *Points) Corners() ([4]Point, error) {
	var c [4]Point
	if !p.Complete() {
		return c, fmt.Errorf("%w, have %d", ErrInsufficientPoints, len(p.pts))
	}
	copy(c[:], p.pts)
	return c, nil
}

// PointsFrom builds a complete pick from exactly four points.
func PointsFrom(pts []Point) (*Points, error) {
	if len(pts) != 4 {
		return nil, fmt.Errorf("%w, got %d", ErrInsufficientPoints, len(pts))
	}
	p := &Points{}
	for _, pt := range pts {
		if err := p.Add(pt); err != nil {
			return nil, err
		}
	}
	return p, nil
}
