package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_LOG_SQL",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC",
	"CORS_ALLOWED_ORIGINS", "DATA_SERVER_IP", "DASHBOARD_POLL_INTERVAL", "DATA_FETCH_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.Driver != "sqlite3" || got.MaxOpenConns != 1 || got.MaxIdleConns != 1 || got.LogSQL {
		t.Errorf("db defaults = %+v", got)
	}
	if got.MQTTTopic != "plants/+/metrics" || got.MQTTPort != 1883 {
		t.Errorf("mqtt defaults: topic=%q port=%d", got.MQTTTopic, got.MQTTPort)
	}
	if len(got.CORSAllowedOrigins) != 1 || got.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", got.CORSAllowedOrigins)
	}
	if got.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", got.PollInterval)
	}
	if got.FetchTimeout != 0 {
		t.Errorf("FetchTimeout = %v, want 0", got.FetchTimeout)
	}
	if got.DataServerURL() != "http://localhost:8080" {
		t.Errorf("DataServerURL() = %q", got.DataServerURL())
	}
}

func TestLoadFromEnv_AppEnv(t *testing.T) {
	tests := []struct {
		name    string
		appEnv  string
		want    string
		wantErr bool
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
		{name: "staging", appEnv: "staging", wantErr: true},
		{name: "uppercase is not normalised", appEnv: "DEV", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LoadFromEnv() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_LogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LOG_LEVEL", tt.in)
			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v", err)
			}
			if got.LogLevel != tt.want {
				t.Errorf("LogLevel = %v, want %v", got.LogLevel, tt.want)
			}
		})
	}

	t.Run("invalid", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOG_LEVEL", "trace")
		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DB_MAX_OPEN_CONNS", "many"},
		{"DB_CONN_MAX_LIFETIME", "forever"},
		{"DB_LOG_SQL", "sometimes"},
		{"MQTT_PORT", "70000"},
		{"MQTT_PORT", "abc"},
		{"DASHBOARD_POLL_INTERVAL", "0s"},
		{"DASHBOARD_POLL_INTERVAL", "-1s"},
		{"DATA_FETCH_TIMEOUT", "-5s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, ,http://b.example")
	t.Setenv("DB_LOG_SQL", "true")
	t.Setenv("DASHBOARD_POLL_INTERVAL", "250ms")
	t.Setenv("DATA_SERVER_IP", "192.168.1.20:8000")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if len(got.CORSAllowedOrigins) != 2 || got.CORSAllowedOrigins[1] != "http://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", got.CORSAllowedOrigins)
	}
	if !got.LogSQL {
		t.Error("LogSQL = false, want true")
	}
	if got.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v", got.PollInterval)
	}
	if got.DataServerURL() != "http://192.168.1.20:8000" {
		t.Errorf("DataServerURL() = %q", got.DataServerURL())
	}
}

func TestDataServerURL(t *testing.T) {
	tests := []struct {
		ip, want string
	}{
		{"plants.local", "http://plants.local"},
		{"10.0.0.5:8000/", "http://10.0.0.5:8000"},
		{"https://plants.example.com", "https://plants.example.com"},
	}
	for _, tt := range tests {
		if got := (Config{DataServerIP: tt.ip}).DataServerURL(); got != tt.want {
			t.Errorf("DataServerURL(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DATA_SERVER_IP=from-dotenv:9000\nMQTT_TOPIC=garden/+/metrics\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(dir, "nope.env")); err != nil {
			t.Fatalf("LoadDotEnv() error = %v", err)
		}
	})

	t.Run("does not override set variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MQTT_TOPIC", "explicit/+/metrics")
		// t.Setenv("X", "") still counts as set, so unset DATA_SERVER_IP for godotenv to fill it.
		os.Unsetenv("DATA_SERVER_IP")
		t.Cleanup(func() { os.Unsetenv("DATA_SERVER_IP") })

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("LoadDotEnv() error = %v", err)
		}
		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v", err)
		}
		if got.DataServerIP != "from-dotenv:9000" {
			t.Errorf("DataServerIP = %q", got.DataServerIP)
		}
		if got.MQTTTopic != "explicit/+/metrics" {
			t.Errorf("MQTTTopic = %q", got.MQTTTopic)
		}
	})
}
