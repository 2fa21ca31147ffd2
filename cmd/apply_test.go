package cmd

import (
	"strings"
	"testing"

	"github.com/kozaktomas/sunglasses/internal/config"
)

func TestProviderHint(t *testing.T) {
	tests := []struct {
		name     string
		detector config.DetectorConfig
		want     string
		notWant  string
	}{
		{
			name:     "http names the server URL",
			detector: config.DetectorConfig{Provider: "http", URL: "http://faces:8000", Command: []string{"detect.py"}},
			want:     "http://faces:8000",
			notWant:  "detect.py",
		},
		{
			name:     "exec names the command",
			detector: config.DetectorConfig{Provider: "exec", URL: "http://faces:8000", Command: []string{"python3", "detect.py"}},
			want:     "python3 detect.py",
			notWant:  "http://faces:8000",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := providerHint(tc.detector)
			if !strings.Contains(got, tc.want) {
				t.Errorf("providerHint() = %q, want it to mention %q", got, tc.want)
			}
			if strings.Contains(got, tc.notWant) {
				t.Errorf("providerHint() = %q, should not mention %q", got, tc.notWant)
			}
		})
	}
}

func TestApplyProviderFlagListsProviders(t *testing.T) {
	usage := applyCmd.Flags().Lookup("provider").Usage
	for _, name := range []string{"http", "exec"} {
		if !strings.Contains(usage, name) {
			t.Errorf("--provider help %q does not list %q", usage, name)
		}
	}
}
