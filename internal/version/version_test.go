package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
}

func TestFromBuildPseudoVersion(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	build := &debug.BuildInfo{
		Main: debug.Module{Path: "example.com/loopster", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	got := fromBuild(build, "")
	if got.Version != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected pseudo version %q", got.Version)
	}
	if !got.Dirty {
		t.Fatalf("expected dirty build")
	}
	if got.Module != "example.com/loopster" {
		t.Fatalf("unexpected module %q", got.Module)
	}
}

func TestFromBuildFallbacks(t *testing.T) {
	got := fromBuild(nil, "")
	if got.Version != "v0.0.0-unknown" || got.Module != defaultModule {
		t.Fatalf("unexpected fallback %+v", got)
	}
	build := &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}, {Key: "vcs.time", Value: "yesterday"}}}
	if got := fromBuild(build, ""); got.Version != "v0.0.0-unknown" {
		t.Fatalf("expected unparsable vcs.time to be ignored, got %q", got.Version)
	}
	if got := fromBuild(&debug.BuildInfo{Main: debug.Module{Version: "v0.9.1"}}, ""); got.Version != "v0.9.1" || got.Dirty {
		t.Fatalf("expected module version, got %+v", got)
	}
}

func TestStringIncludesNameAndVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v0.4.0+dirty"
	t.Cleanup(func() { buildVersion = old })

	got := String("loopster")
	if !strings.HasPrefix(got, "loopster v0.4.0+dirty (") {
		t.Fatalf("unexpected version line %q", got)
	}
	if got := Current(); got != "v0.4.0" {
		t.Fatalf("expected dirty suffix trimmed, got %q", got)
	}
}
