// Package config provides configuration loading and structs for the AgroVision server and UI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Inference InferenceConfig `yaml:"inference"`
	Crop      CropConfig      `yaml:"crop"`
	Disease   DiseaseConfig   `yaml:"disease"`
	Chat      ChatConfig      `yaml:"chat"`
	Storage   StorageConfig   `yaml:"storage"`
	UI        UIConfig        `yaml:"ui"`

	// ChatAPIKey is read from the environment variable named by Chat.APIKeyEnv,
	// never from the YAML file.
	ChatAPIKey string `yaml:"-"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// InferenceConfig holds ONNX Runtime settings shared by both models.
type InferenceConfig struct {
	LibraryPath string `yaml:"library_path"`
}

// CropConfig locates the crop classifier and its label list.
type CropConfig struct {
	ModelPath  string `yaml:"model_path"`
	LabelsPath string `yaml:"labels_path"`
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
	// CacheSize bounds memoized probability vectors; negative disables the cache.
	CacheSize int `yaml:"cache_size"`
}

// DiseaseConfig locates the disease classifier and its class names.
type DiseaseConfig struct {
	ModelPath   string `yaml:"model_path"`
	ClassesPath string `yaml:"classes_path"`
	InputName   string `yaml:"input_name"`
	OutputName  string `yaml:"output_name"`
	ImageSize   int    `yaml:"image_size"`
}

// ChatConfig holds completion API settings. The credential itself comes from
// the environment (optionally via EnvFile).
type ChatConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	EnvFile     string  `yaml:"env_file"`
}

// StorageConfig enables the prediction log when DatabasePath is set.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// UIConfig holds web UI settings.
type UIConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	BackendURL string `yaml:"backend_url"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults and resolves the chat credential. An empty path yields defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	ApplyDefaults(&cfg)

	cfg.Crop.ModelPath = expandPath(cfg.Crop.ModelPath, configDir)
	cfg.Crop.LabelsPath = expandPath(cfg.Crop.LabelsPath, configDir)
	cfg.Disease.ModelPath = expandPath(cfg.Disease.ModelPath, configDir)
	cfg.Disease.ClassesPath = expandPath(cfg.Disease.ClassesPath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Inference.LibraryPath = expandPath(cfg.Inference.LibraryPath, configDir)
	cfg.Chat.EnvFile = expandPath(cfg.Chat.EnvFile, configDir)

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv loads the optional .env file without overriding variables already
// set, then reads the chat credential and the PORT override.
func applyEnv(cfg *Config) error {
	if cfg.Chat.EnvFile != "" {
		if _, err := os.Stat(cfg.Chat.EnvFile); err == nil {
			if err := godotenv.Load(cfg.Chat.EnvFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", cfg.Chat.EnvFile, err)
			}
		}
	}
	cfg.ChatAPIKey = strings.TrimSpace(os.Getenv(cfg.Chat.APIKeyEnv))
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	return nil
}

// Save writes the config to path. The chat credential is never written.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
