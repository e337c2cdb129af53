package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	JWTIssuer          string `yaml:"jwt_issuer"`
	JWTTTLHours        int    `yaml:"jwt_ttl_hours"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute"`
}

func (a AuthConfig) JWTDuration() time.Duration {
	return time.Duration(a.JWTTTLHours) * time.Hour
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type GateConfig struct {
	FillerLimit int `yaml:"filler_limit"`
}

type VoiceConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type Config struct {
	HTTPAddr string      `yaml:"http_addr"`
	TCPAddr  string      `yaml:"tcp_addr"`
	UDPAddr  string      `yaml:"udp_addr"`
	GRPCAddr string      `yaml:"grpc_addr"`
	DBPath   string      `yaml:"db_path"`
	Log      LogConfig   `yaml:"log"`
	Auth     AuthConfig  `yaml:"auth"`
	Gate     GateConfig  `yaml:"gate"`
	Voice    VoiceConfig `yaml:"voice"`
}

// LoadConfig reads an optional YAML file, then applies LUMINOUS_* env
// overrides, then fills defaults. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, "LUMINOUS_HTTP_ADDR")
	setString(&cfg.TCPAddr, "LUMINOUS_TCP_ADDR")
	setString(&cfg.UDPAddr, "LUMINOUS_UDP_ADDR")
	setString(&cfg.GRPCAddr, "LUMINOUS_GRPC_ADDR")
	setString(&cfg.DBPath, "LUMINOUS_DB_PATH")
	setString(&cfg.Log.Level, "LUMINOUS_LOG_LEVEL")
	setString(&cfg.Log.Format, "LUMINOUS_LOG_FORMAT")
	setString(&cfg.Auth.JWTSecret, "LUMINOUS_JWT_SECRET")
	setString(&cfg.Auth.JWTIssuer, "LUMINOUS_JWT_ISSUER")
	setInt(&cfg.Auth.JWTTTLHours, "LUMINOUS_JWT_TTL_HOURS")
	setInt(&cfg.Auth.LoginRatePerMinute, "LUMINOUS_LOGIN_RATE_PER_MINUTE")
	setInt(&cfg.Gate.FillerLimit, "LUMINOUS_GATE_FILLER_LIMIT")
	setString(&cfg.Voice.APIKey, "LUMINOUS_VOICE_API_KEY")
	setString(&cfg.Voice.Model, "LUMINOUS_VOICE_MODEL")
	setString(&cfg.Voice.BaseURL, "LUMINOUS_VOICE_BASE_URL")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.TCPAddr == "" {
		cfg.TCPAddr = ":7070"
	}
	if cfg.UDPAddr == "" {
		cfg.UDPAddr = ":9091"
	}
	if cfg.GRPCAddr == "" {
		cfg.GRPCAddr = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Auth.JWTSecret == "" {
		// dev default (change for production)
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	if cfg.Auth.JWTIssuer == "" {
		cfg.Auth.JWTIssuer = "luminous"
	}
	if cfg.Auth.JWTTTLHours <= 0 {
		cfg.Auth.JWTTTLHours = 24
	}
	if cfg.Auth.LoginRatePerMinute <= 0 {
		cfg.Auth.LoginRatePerMinute = 10
	}
	if cfg.Gate.FillerLimit <= 0 {
		cfg.Gate.FillerLimit = 240
	}
	if cfg.Voice.Model == "" {
		cfg.Voice.Model = "gpt-4o-mini"
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse.
func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
