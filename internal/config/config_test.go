package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "videotouch.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
port = 9001
endpoint = "tcp://0.0.0.0:7100"
session_id = "bench-1"
recv_timeout = "500ms"
raw_log = true

[layout]
arity = 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Port != 9001 || cfg.Endpoint != "tcp://0.0.0.0:7100" {
		t.Fatalf("unexpected addresses: %+v", cfg)
	}
	if cfg.SessionID != "bench-1" {
		t.Fatalf("unexpected session id: %q", cfg.SessionID)
	}
	if cfg.RecvTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected recv timeout: %v", cfg.RecvTimeout)
	}
	if !cfg.RawLogEnabled || cfg.RawLogDir != "rawlog" {
		t.Fatalf("unexpected raw log settings: %+v", cfg)
	}
	if cfg.Layout.GlobalRows != 21 || cfg.Layout.Arity != 3 {
		t.Fatalf("unexpected layout: %+v", cfg.Layout)
	}
	if cfg.UIRate != time.Second {
		t.Fatalf("default ui rate lost: %v", cfg.UIRate)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"port":      "port = 0",
		"drop rate": "debug_drop_rate = 1.5",
		"layout":    "[layout]\nglobal_rows = 0",
		"syntax":    "port = ",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
