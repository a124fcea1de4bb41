package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file inside a working directory.
const FileName = "tvabook.yaml"

// APIKeyEnv is the environment variable holding the admin API key.
// Secrets stay out of tvabook.yaml; a .env file next to it is honored.
const APIKeyEnv = "TVABOOK_API_KEY"

// Config represents the top-level tvabook.yaml configuration.
type Config struct {
	Accounts    []string     `yaml:"accounts"`     // bank account numbers statements are pulled for
	BasePath    string       `yaml:"base_path"`    // root of the <year>/<month> statement tree
	RulesFile   string       `yaml:"rules_file"`   // ruleset document path
	ArchiveFile string       `yaml:"archive_file"` // report archive database path
	LogLevel    string       `yaml:"log_level"`
	Server      ServerConfig `yaml:"server"`
}

// ServerConfig configures the admin HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a tvabook.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new working
// directory.
func Default(dir string) *Config {
	return &Config{
		BasePath:    filepath.Join(dir, "statements"),
		RulesFile:   filepath.Join(dir, "tva_rules.json"),
		ArchiveFile: filepath.Join(dir, "reports.db"),
		LogLevel:    "info",
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
	}
}

// LoadEnv loads a .env file from the working directory when present, then
// returns the API key from the environment. A missing .env file is fine;
// a missing key is not an error here, the server decides whether it can
// run without one.
func LoadEnv(dir string) string {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	return os.Getenv(APIKeyEnv)
}
