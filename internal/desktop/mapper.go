package desktop

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/1broseidon/dtop/internal/platform"
)

// DefaultDriftTolerance is the relative size change allowed between a
// screenshot and the live window.
const DefaultDriftTolerance = 0.2

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MapPoint converts (xRel, yRel), measured on a screenshot of size orig, into
// screen coordinates inside bounds. It fails with a *DriftError when either
// dimension changed by more than tolerance; a drift equal to tolerance passes.
func MapPoint(xRel, yRel float64, orig Size, bounds platform.Rect, tolerance float64) (Point, error) {
	if orig.Width <= 0 || orig.Height <= 0 {
		return Point{}, fmt.Errorf("%w: original size %dx%d", ErrInvalidArgument, orig.Width, orig.Height)
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		return Point{}, fmt.Errorf("%w: tolerance %v", ErrInvalidArgument, tolerance)
	}

	w0, h0 := float64(orig.Width), float64(orig.Height)
	w, h := float64(bounds.Width), float64(bounds.Height)

	drift := math.Max(math.Abs(w-w0)/w0, math.Abs(h-h0)/h0)
	if drift > tolerance {
		return Point{}, &DriftError{
			Drift:     drift,
			Tolerance: tolerance,
			Original:  orig,
			Current:   Size{Width: bounds.Width, Height: bounds.Height},
		}
	}

	// Truncate the absolute position, not the offset: they differ left of
	// or above the primary monitor.
	return Point{
		X: int(float64(bounds.X) + xRel*(w/w0)),
		Y: int(float64(bounds.Y) + yRel*(h/h0)),
	}, nil
}

// Mapper resolves live window geometry and applies MapPoint. It does not
// take the focus gate.
type Mapper struct {
	dir       *Directory
	tolerance atomic.Uint64
}

// NewMapper creates a mapper with a default tolerance.
func NewMapper(dir *Directory, tolerance float64) *Mapper {
	m := &Mapper{dir: dir}
	m.SetTolerance(tolerance)
	return m
}

// SetTolerance updates the default tolerance; non-positive values reset it
// to DefaultDriftTolerance.
func (m *Mapper) SetTolerance(t float64) {
	if t <= 0 || math.IsNaN(t) {
		t = DefaultDriftTolerance
	}
	m.tolerance.Store(math.Float64bits(t))
}

// Tolerance returns the default tolerance.
func (m *Mapper) Tolerance() float64 {
	return math.Float64frombits(m.tolerance.Load())
}

// Map resolves id and maps the point against its current bounds.
func (m *Mapper) Map(ctx context.Context, id platform.WindowID, xRel, yRel float64, orig Size, tolerance float64) (Point, error) {
	w, err := m.dir.Resolve(ctx, id)
	if err != nil {
		return Point{}, err
	}
	return MapPoint(xRel, yRel, orig, w.Bounds, tolerance)
}
