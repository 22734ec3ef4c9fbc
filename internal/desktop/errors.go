package desktop

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("window not found")
	ErrCapture         = errors.New("capture failed")
	ErrDriftExceeded   = errors.New("window size drift exceeds tolerance")
	ErrFocusSwitch     = errors.New("focus switch failed")
	ErrFocusRestore    = errors.New("focus restore failed")
	ErrActionReplay    = errors.New("action replay failed")
	ErrInvalidArgument = errors.New("invalid argument")
)

// DriftError reports how far the live window size moved from the size a
// screenshot was taken at.
type DriftError struct {
	Drift     float64
	Tolerance float64
	Original  Size
	Current   Size
}

// Size is a width/height pair.
type Size struct {
	Width  int
	Height int
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("window size drift %.3f exceeds tolerance %.3f (%dx%d -> %dx%d)",
		e.Drift, e.Tolerance,
		e.Original.Width, e.Original.Height,
		e.Current.Width, e.Current.Height)
}

func (e *DriftError) Unwrap() error { return ErrDriftExceeded }

// ActionError identifies which action in a batch failed. Actions before
// Index were executed and audited.
type ActionError struct {
	Index int
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d: %v", e.Index, e.Err)
}

func (e *ActionError) Unwrap() []error { return []error{ErrActionReplay, e.Err} }

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
