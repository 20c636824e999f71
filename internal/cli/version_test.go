package cli

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestBuildStringFromLdflags(t *testing.T) {
	origCommit, origDate := Commit, BuildDate
	defer func() { Commit, BuildDate = origCommit, origDate }()

	Commit = "4f9c21ab8de0aa11bb22cc33dd44ee55ff667788"
	BuildDate = "2026-08-12T09:41:00Z"

	got := BuildString()
	want := "dev (4f9c21ab8de0, 2026-08-12T09:41:00Z)"
	if got != want {
		t.Errorf("BuildString() = %q, want %q", got, want)
	}
}

func TestBuildStringCommitOnly(t *testing.T) {
	origCommit, origDate := Commit, BuildDate
	defer func() { Commit, BuildDate = origCommit, origDate }()

	Commit = "abc123"
	BuildDate = ""

	got := BuildString()
	if !strings.HasPrefix(got, "dev (abc123") {
		t.Errorf("BuildString() = %q, want prefix %q", got, "dev (abc123")
	}
}

func TestVersionCommandShort(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewVersionCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--short"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version --short failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != Version {
		t.Errorf("short output = %q, want %q", got, Version)
	}
}

func TestVersionCommandFull(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewVersionCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "shelfsync "+Version) {
		t.Errorf("output %q does not start with %q", out, "shelfsync "+Version)
	}
	if !strings.Contains(out, runtime.Version()) {
		t.Errorf("output %q is missing the toolchain version", out)
	}
	if !strings.Contains(out, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("output %q is missing the platform", out)
	}
}
