package main

import (
	"flag"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestContainerFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.sfc"))
	touch(t, filepath.Join(dir, "b.sf"))
	touch(t, filepath.Join(dir, "sub", "c.sfc"))

	flat, err := containerFiles(dir, ".sfc", false)
	if err != nil {
		t.Fatalf("containerFiles: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "a.sfc")}, flat); diff != "" {
		t.Errorf("flat listing (-want +got):\n%s", diff)
	}

	deep, err := containerFiles(dir, ".sfc", true)
	if err != nil {
		t.Fatalf("containerFiles: %v", err)
	}
	sort.Strings(deep)
	want := []string{filepath.Join(dir, "a.sfc"), filepath.Join(dir, "sub", "c.sfc")}
	if diff := cmp.Diff(want, deep); diff != "" {
		t.Errorf("recursive listing (-want +got):\n%s", diff)
	}

	single, err := containerFiles(filepath.Join(dir, "b.sf"), ".sfc", false)
	if err != nil || len(single) != 1 {
		t.Errorf("single file = %v, %v", single, err)
	}

	if _, err := containerFiles(filepath.Join(dir, "missing"), ".sfc", false); err == nil {
		t.Error("missing root accepted")
	}
}

func TestVerbosityFlag(t *testing.T) {
	var v verbosity
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&v, "v", "")
	if err := fs.Parse([]string{"-v", "-v", "-v=false", "-v"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v != 3 {
		t.Errorf("verbosity = %d, want 3", v)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Errorf("loadConfig(missing) = %+v, want error", cfg)
	}
}
