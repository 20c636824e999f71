package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory in this environment")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tilde alone", "~", home},
		{"tilde prefix", "~/library", filepath.Join(home, "library")},
		{"already absolute", "/var/data", filepath.Clean("/var/data")},
		{"redundant segments", "/var//data/../data", filepath.Clean("/var/data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandPathEmpty(t *testing.T) {
	if _, err := ExpandPath(""); err == nil {
		t.Fatal("empty path must be rejected")
	}
}

func TestExpandPathRelative(t *testing.T) {
	got, err := ExpandPath("docs")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("ExpandPath(\"docs\") = %q, want an absolute path", got)
	}
	if !strings.HasSuffix(got, "docs") {
		t.Errorf("ExpandPath(\"docs\") = %q, lost the final segment", got)
	}
}

func TestSamePath(t *testing.T) {
	if !SamePath("/var/data", "/var//data/") {
		t.Error("equivalent spellings must compare equal")
	}
	if SamePath("/var/data", "/var/data2") {
		t.Error("distinct paths must compare unequal")
	}
}
