package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet_KeepsStamps(t *testing.T) {
	oldV, oldD := Version, VCSDirty
	t.Cleanup(func() { Version, VCSDirty = oldV, oldD })

	Version = "1.4.0"
	VCSDirty = nil
	info := Get()
	if info.Version != "1.4.0" {
		t.Fatalf("Version = %q", info.Version)
	}
	// test binaries carry no vcs settings
	if info.VCSDirty != nil {
		t.Fatalf("VCSDirty = %v, want nil", *info.VCSDirty)
	}

	for _, want := range []bool{true, false} {
		val := want
		VCSDirty = &val
		if got := Get().VCSDirty; got == nil || *got != want {
			t.Fatalf("VCSDirty = %v, want %v", got, want)
		}
	}
}

func TestFill(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.11",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.ignored", Value: "x"},
		},
	}

	i := Info{Commit: "none"}
	i.fill(bi)
	if i.Commit != "abc123" || i.CommitDate != "2026-01-02T03:04:05Z" || i.BuildDate != i.CommitDate {
		t.Fatalf("fill = %+v", i)
	}
	if i.GoVersion != "go1.24.11" {
		t.Fatalf("GoVersion = %q", i.GoVersion)
	}
	if i.VCSDirty == nil || !*i.VCSDirty {
		t.Fatal("vcs.modified=true should mark dirty")
	}

	stamped := Info{Commit: "deadbeef", BuildDate: "2026-02-01"}
	stamped.fill(bi)
	if stamped.Commit != "deadbeef" || stamped.BuildDate != "2026-02-01" {
		t.Fatalf("stamps overwritten: %+v", stamped)
	}
}

func TestInfoString(t *testing.T) {
	s := Info{Version: "1.0.0", Commit: "abc"}.String()
	if !strings.HasPrefix(s, AppName+" 1.0.0 (commit=abc,") || !strings.HasSuffix(s, "dirty=unknown)") {
		t.Fatalf("String() = %q", s)
	}
	dirty := false
	if s := (Info{VCSDirty: &dirty}).String(); !strings.Contains(s, "dirty=false") {
		t.Fatalf("String() = %q", s)
	}
}
