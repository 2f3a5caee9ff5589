package version

import (
	"fmt"
	"runtime/debug"
)

// set with -ldflags "-X github.com/alexandreLamarre/padlock/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = ""
)

func init() {
	if GitCommit != "" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				GitCommit = setting.Value
			}
		}
	}
}

func FriendlyVersion() string {
	if GitCommit == "" {
		return Version
	}
	commit := GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}
