package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"CHAT_CONFIG", "CHAT_BASE_URL", "CHAT_WS_URL", "CHAT_HTTP_TIMEOUT",
	"CHAT_PING_INTERVAL", "CHAT_WRITE_TIMEOUT", "CHAT_MAX_ROOMS", "CHAT_UPLOAD_MODE", "CHAT_NATS_URL",
	"CHAT_UPLOAD_BUCKET", "CHAT_UPLOAD_PUBLIC_URL", "CHAT_DATA_DIR", "CHAT_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected base url: %s", cfg.Server.BaseURL)
	}
	if cfg.Session.MaxRooms != 3 || cfg.Session.PingInterval != 30*time.Second || cfg.Session.WriteTimeout != 10*time.Second {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Upload.Mode != UploadModeHTTP || cfg.Log.Level != "info" {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Upload, cfg.Log)
	}

	ws, err := cfg.Server.WebSocketBase()
	if err != nil {
		t.Fatalf("WebSocketBase err: %v", err)
	}
	if ws.String() != "ws://localhost:8000" {
		t.Fatalf("unexpected ws base: %s", ws)
	}
}

func TestLoadDerivesSecureWebSocket(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_BASE_URL", "https://chat.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	ws, err := cfg.Server.WebSocketBase()
	if err != nil {
		t.Fatalf("WebSocketBase err: %v", err)
	}
	if ws.Scheme != "wss" || ws.Host != "chat.example.com" {
		t.Fatalf("unexpected ws base: %s", ws)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "chat.yaml")
	body := []byte(`
server:
  baseUrl: http://files.example:9000
  httpTimeout: 5s
session:
  maxRooms: 5
  writeTimeout: 3s
log:
  level: debug
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHAT_CONFIG", path)
	t.Setenv("CHAT_MAX_ROOMS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.BaseURL != "http://files.example:9000" || cfg.Server.HTTPTimeout != 5*time.Second {
		t.Fatalf("file values not applied: %+v", cfg.Server)
	}
	if cfg.Session.MaxRooms != 2 {
		t.Fatalf("env should override file, got %d", cfg.Session.MaxRooms)
	}
	if cfg.Session.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected write timeout: %s", cfg.Session.WriteTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected level: %s", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CHAT_BASE_URL":      "ftp://nope",
		"CHAT_WS_URL":        "http://not-ws",
		"CHAT_PING_INTERVAL": "soon",
		"CHAT_WRITE_TIMEOUT": "-1s",
		"CHAT_MAX_ROOMS":     "0",
		"CHAT_UPLOAD_MODE":   "carrier-pigeon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestObjectStoreRequiresPublicURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_UPLOAD_MODE", "objectstore")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without public url")
	}

	t.Setenv("CHAT_UPLOAD_PUBLIC_URL", "https://cdn.example.com")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Upload.Bucket != "chat-uploads" || cfg.Upload.NATSURL != "nats://127.0.0.1:4222" {
		t.Fatalf("unexpected upload config: %+v", cfg.Upload)
	}
}
