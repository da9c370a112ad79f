package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treasury.toml")
	contents := `
ListenAddress = ":9000"
Environment = "prod"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" || cfg.Environment != "prod" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DataDir != Default().DataDir {
		t.Fatalf("DataDir not defaulted: %q", cfg.DataDir)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.ProgramID = "not base58!"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid program id accepted")
	}
	cfg = Default()
	cfg.ListenAddress = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank listen address accepted")
	}
}

func TestProgramParsesIdentity(t *testing.T) {
	cfg := Default()
	if cfg.Program().IsZero() {
		t.Fatal("default program identity is zero")
	}
}
