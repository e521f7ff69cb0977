// Package buildinfo carries version stamps injected by the linker, e.g.
//
//	go build -ldflags "-X github.com/m3rciful/tgforms/core/buildinfo.Version=v0.3.0"
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

func init() {
	if Commit != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = s.Value[:min(len(s.Value), 12)]
		case "vcs.time":
			Date = s.Value
		}
	}
}

// String formats the stamps as "v0.3.0 (abc123) 2026-01-02T15:04:05Z".
func String() string {
	commit := Commit
	if commit == "" {
		commit = "local"
	}
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, commit)
	}
	return fmt.Sprintf("%s (%s) %s", Version, commit, Date)
}
