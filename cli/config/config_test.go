package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `backend:
  url: http://studio.internal:8000
  headers:
    Authorization: Bearer token123
  rate_limit: 5

chat:
  model: claude
  system_prompt: Answer briefly.

session:
  path: /tmp/studio/session.msgpack

archive:
  dataset: studio
  backend: s3
  path: my-bucket/prefix
  region: us-east-1
  endpoint: https://example.com
  s3_path_style: true

adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: studio:events
  stream: studio:log
  timeout: 10s
  retries: 3

log:
  level: debug
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Backend
	assertEqual(t, "backend.url", cfg.Backend.URL, "http://studio.internal:8000")
	assertEqual(t, "backend.headers", cfg.Backend.Headers["Authorization"], "Bearer token123")
	if cfg.Backend.RateLimit != 5 {
		t.Errorf("expected rate_limit=5, got %g", cfg.Backend.RateLimit)
	}

	// Chat
	assertEqual(t, "chat.model", cfg.Chat.Model, "claude")
	assertEqual(t, "chat.system_prompt", cfg.Chat.SystemPrompt, "Answer briefly.")
	assertEqual(t, "session.path", cfg.Session.Path, "/tmp/studio/session.msgpack")

	// Archive
	assertEqual(t, "archive.backend", cfg.Archive.Backend, "s3")
	assertEqual(t, "archive.path", cfg.Archive.Path, "my-bucket/prefix")
	assertEqual(t, "archive.region", cfg.Archive.Region, "us-east-1")
	assertEqual(t, "archive.endpoint", cfg.Archive.Endpoint, "https://example.com")
	if !cfg.Archive.S3PathStyle {
		t.Error("expected archive.s3_path_style=true")
	}

	// Adapter
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "studio:events")
	assertEqual(t, "adapter.stream", cfg.Adapter.Stream, "studio:log")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("expected timeout=10s, got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("expected retries=3, got %v", cfg.Adapter.Retries)
	}

	assertEqual(t, "log.level", cfg.Log.Level, "debug")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("STUDIO_TOKEN", "s3cret")

	path := writeTemp(t, `backend:
  url: ${STUDIO_URL:-http://127.0.0.1:9000}
  headers:
    Authorization: Bearer ${STUDIO_TOKEN}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "backend.url", cfg.Backend.URL, "http://127.0.0.1:9000")
	assertEqual(t, "backend.headers", cfg.Backend.Headers["Authorization"], "Bearer s3cret")
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load(writeTemp(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "backend.url", cfg.Backend.URL, "")
	if cfg.Adapter.Retries != nil {
		t.Error("expected nil retries")
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "backend: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "invalid YAML") {
		t.Errorf("expected invalid YAML error, got %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeTemp(t, "adapter:\n  timeout: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("expected invalid duration error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	neg := -1
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, ""},
		{"fs archive", Config{Archive: ArchiveConfig{Backend: "fs", Path: "./data"}}, ""},
		{"bad archive backend", Config{Archive: ArchiveConfig{Backend: "gcs"}}, "archive.backend"},
		{"bad adapter type", Config{Adapter: AdapterConfig{Type: "kafka", URL: "x"}}, "adapter.type"},
		{"adapter without url", Config{Adapter: AdapterConfig{Type: "webhook"}}, "adapter.url"},
		{"negative retries", Config{Adapter: AdapterConfig{Type: "redis", URL: "redis://x", Retries: &neg}}, "adapter.retries"},
		{"negative rate limit", Config{Backend: BackendConfig{RateLimit: -1}}, "rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Discover("")
	if err != nil {
		t.Fatalf("Discover without file failed: %v", err)
	}
	assertEqual(t, "backend.url", cfg.Backend.URL, "")

	if err := os.WriteFile(DefaultFile, []byte("chat:\n  model: local\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Discover("")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	assertEqual(t, "chat.model", cfg.Chat.Model, "local")

	if _, err := Discover("elsewhere.yaml"); err == nil {
		t.Error("explicit missing path should fail")
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
