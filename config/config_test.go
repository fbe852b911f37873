package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Defaults.Status != "online" {
		t.Errorf("Defaults.Status = %q, want online", cfg.Defaults.Status)
	}
	if cfg.Defaults.Expiry.Duration() != 5*time.Minute {
		t.Errorf("Defaults.Expiry = %v, want 5m", cfg.Defaults.Expiry.Duration())
	}
	if cfg.Storage.Type != StorageFile {
		t.Errorf("Storage.Type = %q, want file", cfg.Storage.Type)
	}
	if cfg.Storage.Path != "heartbeat_data_store.json" {
		t.Errorf("Storage.Path = %q, want heartbeat_data_store.json", cfg.Storage.Path)
	}
}

func TestDefault_MatchesEmptyParse(t *testing.T) {
	parsed, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := *Default(); got != *parsed {
		t.Errorf("Default() = %+v, want %+v", got, *parsed)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yml := `
port: 9090
log_level: debug
defaults:
  status: up
  expiry: PT1H30M
storage:
  type: redis
  redis:
    address: redis:6379
    password: secret
    db: 2
    key: hb:snap
    use_tls: true
`
	cfg, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Defaults.Status != "up" {
		t.Errorf("Defaults.Status = %q, want up", cfg.Defaults.Status)
	}
	if cfg.Defaults.Expiry.Duration() != 90*time.Minute {
		t.Errorf("Defaults.Expiry = %v, want 1h30m", cfg.Defaults.Expiry.Duration())
	}
	r := cfg.Storage.Redis
	if r.Address != "redis:6379" || r.Password != "secret" || r.DB != 2 || r.Key != "hb:snap" || !r.UseTLS {
		t.Errorf("Storage.Redis = %+v", r)
	}

	level, err := cfg.Level()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("Level() = (%v, %v), want debug", level, err)
	}
}

func TestParse_StorageDefaults(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		check func(t *testing.T, s StorageConfig)
	}{
		{
			name: "redis key",
			yaml: "storage:\n  type: redis\n  redis:\n    address: localhost:6379\n",
			check: func(t *testing.T, s StorageConfig) {
				if s.Redis.Key != "heartbeat:snapshot" {
					t.Errorf("Redis.Key = %q", s.Redis.Key)
				}
			},
		},
		{
			name: "s3 key",
			yaml: "storage:\n  type: s3\n  s3:\n    endpoint: localhost:9000\n    bucket: hb\n",
			check: func(t *testing.T, s StorageConfig) {
				if s.S3.Key != "heartbeat/snapshot.json" {
					t.Errorf("S3.Key = %q", s.S3.Key)
				}
			},
		},
		{
			name: "custom file path",
			yaml: "storage:\n  type: file\n  path: /var/lib/heartbeat/state.json\n",
			check: func(t *testing.T, s StorageConfig) {
				if s.Path != "/var/lib/heartbeat/state.json" {
					t.Errorf("Path = %q", s.Path)
				}
			},
		},
		{
			name: "memory has no path",
			yaml: "storage:\n  type: memory\n",
			check: func(t *testing.T, s StorageConfig) {
				if s.Path != "" {
					t.Errorf("Path = %q, want empty", s.Path)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.check(t, cfg.Storage)
		})
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("HB_DB_URL", "postgres://hb:pw@db:5432/heartbeat")

	yml := `
storage:
  type: postgres
  postgres:
    url: ${HB_DB_URL}
`
	cfg, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Storage.Postgres.URL != "postgres://hb:pw@db:5432/heartbeat" {
		t.Errorf("Postgres.URL = %q", cfg.Storage.Postgres.URL)
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yml := `
storage:
  type: s3
  s3:
    endpoint: ${HB_UNSET_ENDPOINT:-minio:9000}
    bucket: heartbeat
    access_key: ${HB_UNSET_KEY:-}
`
	cfg, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Storage.S3.Endpoint != "minio:9000" {
		t.Errorf("S3.Endpoint = %q, want minio:9000", cfg.Storage.S3.Endpoint)
	}
	if cfg.Storage.S3.AccessKey != "" {
		t.Errorf("S3.AccessKey = %q, want empty", cfg.Storage.S3.AccessKey)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yml := `
storage:
  type: redis
  redis:
    address: ${HB_DEFINITELY_MISSING}
`
	_, err := Parse([]byte(yml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var")
	}
	if !strings.Contains(err.Error(), "storage.redis.address") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"port too large", "port: 70000", "port must be between"},
		{"negative port", "port: -1", "port must be between"},
		{"bad log level", "log_level: loud", "log_level"},
		{"blank default status", "defaults:\n  status: '   '", "defaults.status"},
		{"unknown storage", "storage:\n  type: dynamo", "storage.type"},
		{"redis without address", "storage:\n  type: redis", "storage.redis.address is required"},
		{"redis negative db", "storage:\n  type: redis\n  redis:\n    address: x:1\n    db: -1", "storage.redis.db"},
		{"s3 without endpoint", "storage:\n  type: s3\n  s3:\n    bucket: b", "storage.s3.endpoint is required"},
		{"s3 endpoint with scheme", "storage:\n  type: s3\n  s3:\n    endpoint: http://minio:9000\n    bucket: b", "without a scheme"},
		{"s3 without bucket", "storage:\n  type: s3\n  s3:\n    endpoint: minio:9000", "storage.s3.bucket is required"},
		{"postgres without url", "storage:\n  type: postgres", "storage.postgres.url is required"},
		{"postgres wrong scheme", "storage:\n  type: postgres\n  postgres:\n    url: mysql://x", "scheme must be postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("port: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParse_InvalidExpiry(t *testing.T) {
	for _, expiry := range []string{"5m", "P", "-PT5M", "soon"} {
		t.Run(expiry, func(t *testing.T) {
			_, err := Parse([]byte("defaults:\n  expiry: \"" + expiry + "\"\n"))
			if err == nil {
				t.Errorf("Parse() expected error for expiry %q", expiry)
			}
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"PT30S", 30 * time.Second},
		{"PT5M", 5 * time.Minute},
		{"PT1H", time.Hour},
		{"P1D", 24 * time.Hour},
		{"PT0.5S", 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			if err := yaml.Unmarshal([]byte(tt.input), &d); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if d.Duration() != tt.want {
				t.Errorf("Duration() = %v, want %v", d.Duration(), tt.want)
			}
		})
	}
}

func TestDuration_String(t *testing.T) {
	if got := Duration(5 * time.Minute).String(); got != "PT5M" {
		t.Errorf("String() = %q, want PT5M", got)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := (&Config{LogLevel: tt.in}).Level()
			if err != nil {
				t.Fatalf("Level() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.yaml")
	if err := os.WriteFile(path, []byte("port: 6000\nstorage:\n  type: memory\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 6000 || cfg.Storage.Type != StorageMemory {
		t.Errorf("Load() = %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
