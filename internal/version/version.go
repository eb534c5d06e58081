// Package version reports the jsonorder build.
package version

import (
	"runtime"
	"runtime/debug"
)

// Set at build time:
// go build -ldflags "-X jsonorder/internal/version.Version=0.3.0 -X jsonorder/internal/version.Commit=abc123"
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Details is the machine-readable form of the build information.
type Details struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build information. When no commit was stamped through
// ldflags the VCS revision recorded by the Go toolchain is used.
func Get() Details {
	d := Details{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if d.Commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					d.Commit = s.Value
				case "vcs.time":
					if d.BuildDate == "unknown" {
						d.BuildDate = s.Value
					}
				}
			}
		}
	}
	return d
}

// Info returns a short version string
func Info() string {
	d := Get()
	if d.Commit != "unknown" && len(d.Commit) > 7 {
		return d.Version + " (" + d.Commit[:7] + ")"
	}
	return d.Version
}

// Full returns complete version information
func Full() string {
	d := Get()
	return "jsonorder version " + d.Version + "\n" +
		"Commit: " + d.Commit + "\n" +
		"Built: " + d.BuildDate + "\n" +
		"Go: " + d.GoVersion
}
