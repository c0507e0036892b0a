package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldV, oldSHA := Version, GitSHA
	defer func() { Version, GitSHA = oldV, oldSHA }()

	Version = "1.2.3"
	GitSHA = "0123456789abcdef0123"

	got := String()
	if !strings.HasPrefix(got, "shetran-soils 1.2.3 (0123456789ab,") {
		t.Errorf("String() = %q", got)
	}
	if strings.Contains(got, "cdef0123") {
		t.Errorf("String() should shorten the SHA: %q", got)
	}
}
