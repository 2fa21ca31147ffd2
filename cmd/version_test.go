package cmd

import (
	"runtime"
	"testing"
)

func TestBuildVersionInfo(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.2.3"
	info := buildVersionInfo()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q, want ldflags value", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Commit == "" || info.BuildDate == "" {
		t.Errorf("empty fields in %+v", info)
	}
}
