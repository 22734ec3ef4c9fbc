//go:build !linux && !darwin

package main

// acquireLock is a no-op where flock is unavailable.
func acquireLock() (func(), error) {
	return func() {}, nil
}
