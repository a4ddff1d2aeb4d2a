package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "host: 0.0.0.0\nport: 9999\nport_attempts: 5\nmodel_name: m1\nlog_level: debug\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 9999 || cfg.PortAttempts != 5 || cfg.ModelName != "m1" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"port":7070,"model_name":"m2","model_path":"/w/m2.gguf","max_body_bytes":1048576}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7070 || cfg.ModelName != "m2" || cfg.ModelPath != "/w/m2.gguf" || cfg.MaxBodyBytes != 1048576 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "port=8081\nmodel_name=\"m3\"\ninfer_timeout_sec=60\ncors_enabled=true\ncors_origins=[\"http://localhost:5173\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8081 || cfg.ModelName != "m3" || cfg.InferTimeoutSec != 60 || !cfg.CORSEnabled || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoadInvalidBodies(t *testing.T) {
	d := t.TempDir()
	if _, err := Load(writeTempFile(t, d, "bad.yaml", "port: 8080\n: broken\n")); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
	if _, err := Load(writeTempFile(t, d, "bad.json", `{ "port": 8080, "model_name": }`)); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
	if _, err := Load(writeTempFile(t, d, "bad.toml", "port=:8080\nmodel\n")); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}
