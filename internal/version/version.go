// Package version reports the loopster build version.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/loopster"

// buildVersion is set via -ldflags "-X pkt.systems/loopster/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Module  string
	Version string
	Dirty   bool
}

// Read collects Info from the linker flag or the embedded build info.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuild(info, buildVersion)
}

// Current returns the version without a dirty marker.
func Current() string {
	return Read().Version
}

// String renders the version line printed by the CLI.
func String(name string) string {
	info := Read()
	ver := info.Version
	if info.Dirty {
		ver += "+dirty"
	}
	return name + " " + ver + " (" + info.Module + ")"
}

func fromBuild(build *debug.BuildInfo, linked string) Info {
	out := Info{Module: defaultModule, Version: "v0.0.0-unknown"}
	if build != nil {
		if path := strings.TrimSpace(build.Main.Path); path != "" {
			out.Module = path
		}
	}
	if linked = strings.TrimSpace(linked); linked != "" {
		out.Version, out.Dirty = splitDirty(linked)
		return out
	}
	if build == nil {
		return out
	}
	if v := strings.TrimSpace(build.Main.Version); v != "" && v != "(devel)" {
		out.Version, out.Dirty = splitDirty(v)
		return out
	}
	if v, dirty, ok := pseudoVersion(build.Settings); ok {
		out.Version, out.Dirty = v, dirty
	}
	return out
}

func splitDirty(v string) (string, bool) {
	trimmed := strings.TrimSuffix(v, "+dirty")
	return trimmed, trimmed != v
}

// pseudoVersion derives a Go-style pseudo version from VCS stamps.
func pseudoVersion(settings []debug.BuildSetting) (string, bool, bool) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}
	rev, stamp := vcs["vcs.revision"], vcs["vcs.time"]
	if rev == "" || stamp == "" {
		return "", false, false
	}
	at, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return "", false, false
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return "v0.0.0-" + at.UTC().Format("20060102150405") + "-" + rev, vcs["vcs.modified"] == "true", true
}
