// Package version carries the firmware version reported on the status page.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/apswitch/internal/version.Version=1.2.0 \
//	                   -X github.com/muurk/apswitch/internal/version.Commit=abc123"
var (
	// Version is the firmware version string shown as ${firmwareVersion}.
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

// DefaultVersion is reported when the binary was built without ldflags
// and without VCS information.
const DefaultVersion = "0.0.0-dev"

func init() {
	if Version == "" || Commit == "" {
		vcsRevision, vcsModified := readVCS()
		if Commit == "" && vcsRevision != "" {
			Commit = shortRevision(vcsRevision, vcsModified)
		}
	}

	if Version == "" {
		Version = DefaultVersion
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func readVCS() (revision string, modified bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, modified
}

func shortRevision(revision string, modified bool) string {
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
