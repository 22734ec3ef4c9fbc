package desktop

import (
	"context"
	"errors"
	"testing"

	"github.com/1broseidon/dtop/internal/platform"
	"github.com/1broseidon/dtop/internal/platform/platformtest"
)

func TestMapPoint(t *testing.T) {
	orig := Size{Width: 800, Height: 600}
	tests := []struct {
		name    string
		bounds  platform.Rect
		x, y    float64
		want    Point
		wantErr error
	}{
		{
			name:   "unchanged size",
			bounds: platform.Rect{X: 100, Y: 100, Width: 800, Height: 600},
			x:      400, y: 300,
			want: Point{X: 500, Y: 400},
		},
		{
			name:   "width grew within tolerance",
			bounds: platform.Rect{X: 100, Y: 100, Width: 880, Height: 600},
			x:      400, y: 300,
			want: Point{X: 540, Y: 400},
		},
		{
			name:   "window moved",
			bounds: platform.Rect{X: -200, Y: 30, Width: 800, Height: 600},
			x:      10, y: 20,
			want: Point{X: -190, Y: 50},
		},
		{
			name:   "negative origin truncates toward zero",
			bounds: platform.Rect{X: -1000, Y: -500, Width: 800, Height: 600},
			x:      10.5, y: 20.5,
			want: Point{X: -989, Y: -479},
		},
		{
			name:   "fractional result truncates",
			bounds: platform.Rect{X: 0, Y: 0, Width: 850, Height: 600},
			x:      1, y: 1,
			want: Point{X: 1, Y: 1},
		},
		{
			name:    "width doubled",
			bounds:  platform.Rect{X: 100, Y: 100, Width: 1600, Height: 600},
			x:       400, y: 300,
			wantErr: ErrDriftExceeded,
		},
		{
			name:    "height shrank too far",
			bounds:  platform.Rect{X: 0, Y: 0, Width: 800, Height: 400},
			x:       1, y: 1,
			wantErr: ErrDriftExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapPoint(tt.x, tt.y, orig, tt.bounds, DefaultDriftTolerance)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("MapPoint() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MapPoint() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("MapPoint() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMapPointToleranceBoundary(t *testing.T) {
	orig := Size{Width: 1000, Height: 1000}

	if _, err := MapPoint(0, 0, orig, platform.Rect{Width: 1200, Height: 1000}, 0.2); err != nil {
		t.Fatalf("drift equal to tolerance should pass, got %v", err)
	}

	_, err := MapPoint(0, 0, orig, platform.Rect{Width: 1201, Height: 1000}, 0.2)
	var drift *DriftError
	if !errors.As(err, &drift) {
		t.Fatalf("expected *DriftError, got %v", err)
	}
	if drift.Current.Width != 1201 || drift.Original.Width != 1000 {
		t.Fatalf("DriftError sizes = %+v -> %+v", drift.Original, drift.Current)
	}
	if drift.Drift <= 0.2 {
		t.Fatalf("DriftError.Drift = %v, want > 0.2", drift.Drift)
	}
}

func TestMapPointZeroToleranceRequiresExactSize(t *testing.T) {
	orig := Size{Width: 640, Height: 480}
	if _, err := MapPoint(5, 5, orig, platform.Rect{Width: 640, Height: 480}, 0); err != nil {
		t.Fatalf("exact size with zero tolerance: %v", err)
	}
	if _, err := MapPoint(5, 5, orig, platform.Rect{Width: 641, Height: 480}, 0); !errors.Is(err, ErrDriftExceeded) {
		t.Fatalf("expected drift error, got %v", err)
	}
}

func TestMapPointInvalidArguments(t *testing.T) {
	b := platform.Rect{Width: 100, Height: 100}
	cases := []struct {
		orig Size
		tol  float64
	}{
		{Size{0, 100}, 0.2},
		{Size{100, -1}, 0.2},
		{Size{100, 100}, -0.1},
	}
	for _, c := range cases {
		if _, err := MapPoint(1, 1, c.orig, b, c.tol); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("MapPoint(orig=%+v, tol=%v) error = %v, want ErrInvalidArgument", c.orig, c.tol, err)
		}
	}
}

func TestMapperResolvesLiveWindow(t *testing.T) {
	fake := platformtest.New(platformtest.Window("42", "Editor", "main.go", 100, 100, 880, 600))
	m := NewMapper(NewDirectory(fake, nil, nil), 0)

	if m.Tolerance() != DefaultDriftTolerance {
		t.Fatalf("Tolerance() = %v, want default", m.Tolerance())
	}

	ctx := context.Background()
	got, err := m.Map(ctx, "42", 400, 300, Size{Width: 800, Height: 600}, m.Tolerance())
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if got != (Point{X: 540, Y: 400}) {
		t.Fatalf("Map() = %+v, want {540 400}", got)
	}

	if _, err := m.Map(ctx, "nope", 1, 1, Size{Width: 800, Height: 600}, 0.2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Map(unknown) error = %v, want ErrNotFound", err)
	}
	if len(fake.Events()) != 0 {
		t.Fatalf("Map() must not change focus, events = %+v", fake.Events())
	}
}
