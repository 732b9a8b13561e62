package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	defaultConfigName   = "config.json"
	defaultDatabaseFile = "fleet.db"
	defaultPort         = 8080
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultJoinScheme   = "omlet"
	defaultDomain       = "omlet.gg"
)

type Config struct {
	DatabasePath  string `json:"database_path"`
	Port          int    `json:"port"`
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
	JoinScheme    string `json:"join_scheme"`
	AddressDomain string `json:"address_domain"`
}

func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, defaultConfigName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath, configDir)
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}
	if cfg.JoinScheme == "" {
		cfg.JoinScheme = defaultJoinScheme
	}
	if cfg.AddressDomain == "" {
		cfg.AddressDomain = defaultDomain
	}

	return &cfg, nil
}

func createDefaultConfig(configPath, configDir string) (*Config, error) {
	cfg := Config{
		DatabasePath:  filepath.Join(configDir, defaultDatabaseFile),
		Port:          defaultPort,
		LogLevel:      defaultLogLevel,
		LogFormat:     defaultLogFormat,
		JoinScheme:    defaultJoinScheme,
		AddressDomain: defaultDomain,
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Dir resolves the per-user config directory for the daemon and CLI.
func Dir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	appName := "omlethub"
	if os.Getenv("OMLETHUB_DEV") != "" {
		appName = "omlethub-dev"
	}
	return filepath.Join(userConfigDir, appName), nil
}
