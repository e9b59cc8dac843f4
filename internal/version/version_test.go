package version

import (
	"strings"
	"testing"
)

func TestStringIncludesBuildInfo(t *testing.T) {
	orig := Version
	Version = "1.2.3"
	defer func() { Version = orig }()

	got := String()
	if !strings.HasPrefix(got, "merchant-verdict 1.2.3\n") || !strings.Contains(got, "commit: "+Commit) {
		t.Fatalf("String() = %q", got)
	}
}
