//go:build linux

package platform

import (
	"strings"
	"testing"
)

func TestOpenRejectsBadXAuthority(t *testing.T) {
	t.Setenv("XAUTHORITY", "")

	_, err := Open(Options{XAuthority: "/tmp/x\x00auth"})
	if err == nil || !strings.Contains(err.Error(), "XAUTHORITY") {
		t.Fatalf("Open() error = %v, want XAUTHORITY error", err)
	}
}
