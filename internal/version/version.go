// Package version reports build information for the seqchat binary.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
	// BuildTime is the build timestamp (set via -ldflags).
	BuildTime = ""
)

const devVersion = "dev"

type Info struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	Modified  bool
}

// Resolve merges the -ldflags values with the VCS stamps recorded by the Go
// toolchain. Ldflags win when both are present.
func Resolve() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
}

func resolve(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if bi != nil {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
	}
	if info.Version == "" {
		info.Version = devVersion
	}
	return info
}

func String() string {
	return Resolve().String()
}

func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	s := i.Version + " (" + shortCommit(i.Commit)
	if i.Modified {
		s += "-dirty"
	}
	return s + ")"
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
