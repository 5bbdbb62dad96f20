// Package version carries build metadata stamped with -ldflags. Fields the
// build did not stamp are filled from the module's embedded VCS settings.
package version

import (
	"fmt"
	"runtime/debug"
)

// AppName names the binary in logs, metrics and traces.
const AppName = "sitepipe"

// Stamped with -ldflags "-X github.com/keithlinneman/sitepipe/internal/version.Version=...".
var (
	Version    = "dev"
	Commit     = "none"
	CommitDate string
	BuildDate  string
	BuildId    string
	GoVersion  string
	VCSDirty   *bool
)

type Info struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date"`
	BuildDate  string `json:"build_date"`
	BuildId    string `json:"build_id"`
	GoVersion  string `json:"go_version"`
	VCSDirty   *bool  `json:"vcs_dirty,omitempty"`
}

func Get() Info {
	out := Info{
		Version:    Version,
		Commit:     Commit,
		CommitDate: CommitDate,
		BuildDate:  BuildDate,
		BuildId:    BuildId,
		GoVersion:  GoVersion,
		VCSDirty:   VCSDirty,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		out.fill(bi)
	}
	return out
}

// fill copies the toolchain version and any vcs.* settings the stamps left
// empty.
func (i *Info) fill(bi *debug.BuildInfo) {
	i.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		if s.Value == "" {
			continue
		}
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "none" {
				i.Commit = s.Value
			}
		case "vcs.time":
			i.CommitDate = s.Value
			if i.BuildDate == "" {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			dirty := s.Value == "true"
			i.VCSDirty = &dirty
		}
	}
}

// String is the one-line form printed by --version.
func (i Info) String() string {
	dirty := "unknown"
	if i.VCSDirty != nil {
		dirty = fmt.Sprint(*i.VCSDirty)
	}
	return fmt.Sprintf("%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%s)",
		AppName, i.Version, i.Commit, i.CommitDate, i.BuildId, i.BuildDate, i.GoVersion, dirty)
}
