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
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body = strings.ReplaceAll(body, "$DIR", dir)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROPINV_STORAGE_PATH", filepath.Join(dir, "snap.bolt"))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.Server.APIPort)
	}
	if cfg.Storage.Type != "bolt" {
		t.Errorf("Storage.Type = %q, want bolt", cfg.Storage.Type)
	}
	if !cfg.Dashboard.PlaceholderData {
		t.Error("placeholder data should default on")
	}
	if len(cfg.Dashboard.DateFields) != 4 || cfg.Dashboard.DateFields[0] != "created_at" {
		t.Errorf("DateFields = %v", cfg.Dashboard.DateFields)
	}
	if got := ParseDuration(cfg.Animation.Duration, 0); got != time.Second {
		t.Errorf("animation duration = %v, want 1s", got)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  api_port: 9000
backend:
  base_url: https://inventory.example.org
  token: secret
storage:
  path: $DIR/data/snap.bolt
dashboard:
  timezone: Europe/Rome
  placeholder_data: false
`)
	t.Setenv("PROPINV_SERVER_API_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.APIPort != 9100 {
		t.Errorf("APIPort = %d, want env override 9100", cfg.Server.APIPort)
	}
	if cfg.Backend.BaseURL != "https://inventory.example.org" || cfg.Backend.Token != "secret" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Dashboard.PlaceholderData {
		t.Error("placeholder data should be disabled by file")
	}
	loc, err := cfg.Dashboard.Location()
	if err != nil || loc.String() != "Europe/Rome" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
	if _, err := os.Stat(filepath.Dir(cfg.Storage.Path)); err != nil {
		t.Errorf("storage directory not created: %v", err)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "port",
			body: "server:\n  api_port: 70000\nstorage:\n  path: $DIR/s.bolt\n",
			want: "invalid API port",
		},
		{
			name: "backend url",
			body: "backend:\n  base_url: ftp://x\nstorage:\n  path: $DIR/s.bolt\n",
			want: "invalid backend base URL",
		},
		{
			name: "duration",
			body: "dashboard:\n  cache_ttl: soon\nstorage:\n  path: $DIR/s.bolt\n",
			want: "dashboard.cache_ttl",
		},
		{
			name: "timezone",
			body: "dashboard:\n  timezone: Mars/Olympus\nstorage:\n  path: $DIR/s.bolt\n",
			want: "invalid dashboard timezone",
		},
		{
			name: "storage type",
			body: "storage:\n  type: etcd\n",
			want: "unsupported storage type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseDurationFallback(t *testing.T) {
	if got := ParseDuration("bogus", 3*time.Second); got != 3*time.Second {
		t.Errorf("ParseDuration(bogus) = %v", got)
	}
	if got := ParseDuration("250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("ParseDuration(250ms) = %v", got)
	}
}

func TestKeysIncludeSecrets(t *testing.T) {
	keys := make(map[string]bool)
	for _, k := range Keys() {
		keys[k] = true
	}
	for _, want := range []string{"backend.token", "storage.redis.password", "animation.kpis", "server.refresh_limit"} {
		if !keys[want] {
			t.Errorf("Keys() missing %q", want)
		}
	}
}

func TestDefaultsMatchLoad(t *testing.T) {
	def, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults() error = %v", err)
	}
	if def.Backend.BaseURL != "http://localhost:8000" || def.Server.RefreshLimit != 10 {
		t.Errorf("defaults = %+v", def)
	}
	if len(def.Animation.KPIs) != 4 {
		t.Errorf("KPIs = %v", def.Animation.KPIs)
	}
}
