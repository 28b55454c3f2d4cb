package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chating-app/chating/client/internal/service/api"
)

// 上传方式
const (
	UploadModeHTTP        = "http"
	UploadModeObjectStore = "objectstore"
)

// Config 聚合客户端的配置项。
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Upload  UploadConfig
	Storage StorageConfig
	Log     LogConfig
}

// ServerConfig 描述后端地址。
type ServerConfig struct {
	BaseURL      string
	WebSocketURL string
	HTTPTimeout  time.Duration
}

// SessionConfig 描述聊天会话参数。
type SessionConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	MaxRooms     int
}

// UploadConfig 描述文件上传路径。
type UploadConfig struct {
	Mode      string
	NATSURL   string
	Bucket    string
	PublicURL string
}

// StorageConfig 描述本地数据目录。
type StorageConfig struct {
	DataDir string
}

// LogConfig 日志级别
type LogConfig struct {
	Level string
}

// fileConfig mirrors the optional YAML file. Empty values fall through to
// the defaults; environment variables override both.
type fileConfig struct {
	Server struct {
		BaseURL      string `yaml:"baseUrl"`
		WebSocketURL string `yaml:"wsUrl"`
		HTTPTimeout  string `yaml:"httpTimeout"`
	} `yaml:"server"`
	Session struct {
		PingInterval string `yaml:"pingInterval"`
		WriteTimeout string `yaml:"writeTimeout"`
		MaxRooms     int    `yaml:"maxRooms"`
	} `yaml:"session"`
	Upload struct {
		Mode      string `yaml:"mode"`
		NATSURL   string `yaml:"natsUrl"`
		Bucket    string `yaml:"bucket"`
		PublicURL string `yaml:"publicUrl"`
	} `yaml:"upload"`
	Storage struct {
		DataDir string `yaml:"dataDir"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load 从 CHAT_CONFIG 指向的 YAML 文件与环境变量加载配置。
func Load() (*Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("CHAT_CONFIG")))
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(file)
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig(file)
	if err != nil {
		return nil, err
	}

	upload, err := loadUploadConfig(file)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:  server,
		Session: session,
		Upload:  upload,
		Storage: StorageConfig{DataDir: getEnvOrDefault("CHAT_DATA_DIR", orDefault(file.Storage.DataDir, defaultDataDir()))},
		Log:     LogConfig{Level: strings.ToLower(getEnvOrDefault("CHAT_LOG_LEVEL", orDefault(file.Log.Level, "info")))},
	}
	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	var file fileConfig
	if path == "" {
		return file, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

// loadServerConfig 解析后端 HTTP 与 WebSocket 地址。
func loadServerConfig(file fileConfig) (ServerConfig, error) {
	base := strings.TrimRight(getEnvOrDefault("CHAT_BASE_URL", orDefault(file.Server.BaseURL, "http://localhost:8000")), "/")
	if _, err := api.WebSocketBase(base); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid CHAT_BASE_URL: %w", err)
	}

	ws := getEnvOrDefault("CHAT_WS_URL", file.Server.WebSocketURL)
	if ws != "" {
		if _, err := api.ParseWebSocketBase(ws); err != nil {
			return ServerConfig{}, fmt.Errorf("invalid CHAT_WS_URL: %w", err)
		}
	}

	timeout, err := parseDurationEnv("CHAT_HTTP_TIMEOUT", file.Server.HTTPTimeout, 0)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{BaseURL: base, WebSocketURL: strings.TrimRight(ws, "/"), HTTPTimeout: timeout}, nil
}

func loadSessionConfig(file fileConfig) (SessionConfig, error) {
	ping, err := parseDurationEnv("CHAT_PING_INTERVAL", file.Session.PingInterval, 30*time.Second)
	if err != nil {
		return SessionConfig{}, err
	}
	writeTimeout, err := parseDurationEnv("CHAT_WRITE_TIMEOUT", file.Session.WriteTimeout, 10*time.Second)
	if err != nil {
		return SessionConfig{}, err
	}

	maxRooms := 3
	if file.Session.MaxRooms > 0 {
		maxRooms = file.Session.MaxRooms
	}
	override, err := parseOptionalIntEnv("CHAT_MAX_ROOMS")
	if err != nil {
		return SessionConfig{}, err
	}
	if override != nil {
		maxRooms = *override
	}
	if maxRooms <= 0 {
		return SessionConfig{}, fmt.Errorf("invalid CHAT_MAX_ROOMS value %d: must be positive", maxRooms)
	}

	return SessionConfig{PingInterval: ping, WriteTimeout: writeTimeout, MaxRooms: maxRooms}, nil
}

func loadUploadConfig(file fileConfig) (UploadConfig, error) {
	cfg := UploadConfig{
		Mode:      strings.ToLower(getEnvOrDefault("CHAT_UPLOAD_MODE", orDefault(file.Upload.Mode, UploadModeHTTP))),
		NATSURL:   getEnvOrDefault("CHAT_NATS_URL", orDefault(file.Upload.NATSURL, "nats://127.0.0.1:4222")),
		Bucket:    getEnvOrDefault("CHAT_UPLOAD_BUCKET", orDefault(file.Upload.Bucket, "chat-uploads")),
		PublicURL: getEnvOrDefault("CHAT_UPLOAD_PUBLIC_URL", file.Upload.PublicURL),
	}

	switch cfg.Mode {
	case UploadModeHTTP:
	case UploadModeObjectStore:
		if cfg.PublicURL == "" {
			return UploadConfig{}, errors.New("CHAT_UPLOAD_PUBLIC_URL is required when CHAT_UPLOAD_MODE=objectstore")
		}
	default:
		return UploadConfig{}, fmt.Errorf("invalid CHAT_UPLOAD_MODE value %q", cfg.Mode)
	}
	return cfg, nil
}

// WebSocketBase returns the explicit ws base or derives it from BaseURL.
func (c ServerConfig) WebSocketBase() (*url.URL, error) {
	if c.WebSocketURL != "" {
		return api.ParseWebSocketBase(c.WebSocketURL)
	}
	return api.WebSocketBase(c.BaseURL)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".chatctl"
	}
	return filepath.Join(home, ".chatctl")
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key, fileValue string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnvOrDefault(key, strings.TrimSpace(fileValue))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
