//go:build !linux && !darwin && !windows

package platform

// Open reports ErrUnsupported on hosts without a window backend.
func Open(Options) (Desktop, error) {
	return nil, ErrUnsupported
}
