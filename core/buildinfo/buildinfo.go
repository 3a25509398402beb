// Package buildinfo reports which build of the bot is running.
//
// Release builds set the values with -ldflags, for example
//
//	-X 'github.com/m3rciful/notesbot/core/buildinfo.Version=v1.2.3'
//
// Otherwise Commit and Date are taken from the VCS stamp that go build
// embeds, when present.
package buildinfo

import "runtime/debug"

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the source revision.
	Commit = "local"
	// Date is the build or commit time in RFC 3339.
	Date = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "local" && s.Value != "" {
				Commit = s.Value[:min(len(s.Value), 12)]
			}
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		}
	}
}
