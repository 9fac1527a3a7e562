package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KBARS_CONFIG", "KBARS_BUNDLE_DIR",
		"KBARS_SERVER_HOST", "KBARS_SERVER_PORT",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kbars.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
bundle:
  dir: "/var/lib/kbars/bundle"
server:
  host: "127.0.0.1"
  port: 9000
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Bundle.Dir != "/var/lib/kbars/bundle" {
		t.Errorf("Bundle.Dir = %q, want %q", cfg.Bundle.Dir, "/var/lib/kbars/bundle")
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
bundle:
  dir: "/data/bundle"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Bundle.Dir != "/data/bundle" {
		t.Errorf("Bundle.Dir = %q, want %q", cfg.Bundle.Dir, "/data/bundle")
	}
	// Unset sections fall back to the defaults.
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Bundle.Dir != "bundle" || cfg.Server.Port != 8080 {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
bundle:
  dir: "/original/bundle"
server:
  host: "127.0.0.1"
  port: 9000
`)

	os.Setenv("KBARS_BUNDLE_DIR", "/env/bundle")
	os.Setenv("KBARS_SERVER_PORT", "9100")
	os.Setenv("LOG_LEVEL", "warn")
	defer clearEnv(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Bundle.Dir != "/env/bundle" {
		t.Errorf("Bundle.Dir = %q, want %q (env override)", cfg.Bundle.Dir, "/env/bundle")
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want %d (env override)", cfg.Server.Port, 9100)
	}
	// Host should remain from YAML since no env override was set.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q (from YAML)", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q (env override)", cfg.Logging.Level, "warn")
	}
}

func TestLoadBadPortOverrideIgnored(t *testing.T) {
	clearEnv(t)

	os.Setenv("KBARS_SERVER_PORT", "not-a-port")
	defer clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestPath(t *testing.T) {
	clearEnv(t)

	if got := Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}

	os.Setenv("KBARS_CONFIG", "/etc/kbars.yaml")
	defer clearEnv(t)
	if got := Path(); got != "/etc/kbars.yaml" {
		t.Errorf("Path() = %q, want %q", got, "/etc/kbars.yaml")
	}
}

func TestServerAddr(t *testing.T) {
	s := Server{Host: "0.0.0.0", Port: 8080}
	if got := s.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want %q", got, "0.0.0.0:8080")
	}
}
