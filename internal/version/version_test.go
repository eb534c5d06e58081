package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	defer func() {
		Version = origVersion
		Commit = origCommit
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		wantExact string
	}{
		{
			name:      "long commit is shortened",
			version:   "1.0.0",
			commit:    "abc1234567890",
			wantExact: "1.0.0 (abc1234)",
		},
		{
			name:      "short commit is omitted",
			version:   "1.0.0",
			commit:    "abc",
			wantExact: "1.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			Commit = tt.commit

			if got := Info(); got != tt.wantExact {
				t.Errorf("Info() = %q, want %q", got, tt.wantExact)
			}
		})
	}
}

func TestFull(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	origBuildDate := BuildDate
	defer func() {
		Version = origVersion
		Commit = origCommit
		BuildDate = origBuildDate
	}()

	Version = "1.2.3"
	Commit = "abcdef123456"
	BuildDate = "2024-01-15"

	got := Full()

	expectedParts := []string{
		"jsonorder version 1.2.3",
		"Commit: abcdef123456",
		"Built: 2024-01-15",
		"Go: " + runtime.Version(),
	}

	for _, part := range expectedParts {
		if !strings.Contains(got, part) {
			t.Errorf("Full() = %q, want to contain %q", got, part)
		}
	}
}

func TestGetKeepsStampedValues(t *testing.T) {
	origCommit := Commit
	origBuildDate := BuildDate
	defer func() {
		Commit = origCommit
		BuildDate = origBuildDate
	}()

	Commit = "deadbeefcafe"
	BuildDate = "2025-06-01"

	d := Get()
	if d.Commit != "deadbeefcafe" || d.BuildDate != "2025-06-01" {
		t.Errorf("Get() = %+v, want stamped commit and date", d)
	}
	if d.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
}

func TestDefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}

	parts := strings.Split(Version, ".")
	if len(parts) < 2 {
		t.Errorf("Version %q doesn't appear to be semver", Version)
	}
}
