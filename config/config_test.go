package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[gpg]
key = "ABCDEF0123456789"
secret-keyring = "keys/secring.asc"

[bytecode]
compression = "lz4"
extension = "sfb"
verify-signature = true

[log]
verbosity = 2
`
	path := filepath.Join(dir, "saffire.toml")
	if err := os.WriteFile(path, []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.GPG.Key != "ABCDEF0123456789" {
		t.Errorf("gpg key = %q, want ABCDEF0123456789", c.GPG.Key)
	}
	if c.Bytecode.Compression != "lz4" {
		t.Errorf("compression = %q, want lz4", c.Bytecode.Compression)
	}
	if c.Bytecode.Extension != ".sfb" {
		t.Errorf("extension = %q, want .sfb", c.Bytecode.Extension)
	}
	if c.Bytecode.SourceExtension != ".sf" {
		t.Errorf("source extension = %q, want default .sf", c.Bytecode.SourceExtension)
	}
	if !c.Bytecode.VerifySignature {
		t.Error("verify-signature = false, want true")
	}
	if c.Bytecode.RequireSignature {
		t.Error("require-signature = true, want false")
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", c.Log.Verbosity)
	}
	if got, want := c.ResolvePath(c.GPG.SecretKeyring), filepath.Join(c.Dir, "keys", "secring.asc"); got != want {
		t.Errorf("secret keyring = %q, want %q", got, want)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
gpg:
  key: release@saffire.invalid
bytecode:
  require-signature: true
`
	path := filepath.Join(dir, "saffire.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.GPG.Key != "release@saffire.invalid" {
		t.Errorf("gpg key = %q", c.GPG.Key)
	}
	if !c.Bytecode.RequireSignature {
		t.Error("require-signature = false, want true")
	}
	if c.Bytecode.Compression != "zstd" {
		t.Errorf("compression = %q, want default zstd", c.Bytecode.Compression)
	}
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saffire.toml")
	content := `
[gpg]
key = "deadbeef"

[log]
verbosity = 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if v, ok := c.Get("gpg.key"); !ok || v != "deadbeef" {
		t.Errorf("Get(gpg.key) = %q, %v", v, ok)
	}
	if v, ok := c.Get("log.verbosity"); !ok || v != "3" {
		t.Errorf("Get(log.verbosity) = %q, %v", v, ok)
	}
	if v, ok := c.Get("bytecode.extension"); !ok || v != ".sfc" {
		t.Errorf("Get(bytecode.extension) = %q, %v, want default", v, ok)
	}
	if _, ok := c.Get("gpg"); ok {
		t.Error("Get(gpg) resolved a table")
	}
	if _, ok := c.Get("gpg.missing"); ok {
		t.Error("Get(gpg.missing) resolved")
	}

	if _, ok := Default().Get("gpg.key"); ok {
		t.Error("default config has a gpg key")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	content := "[gpg]\nkey = \"found\"\n"
	if err := os.WriteFile(filepath.Join(root, "saffire.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if c.GPG.Key != "found" {
		t.Errorf("gpg key = %q, want found", c.GPG.Key)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("dir = %q, want %q", c.Dir, abs)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "saffire.toml")); err == nil {
		t.Error("missing file loaded")
	}
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[gpg\nkey="), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("malformed TOML loaded")
	}
}
