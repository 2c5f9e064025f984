package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"promptloom/internal/prompt"
	"promptloom/internal/worldinfo"
)

type ProjectConfig struct {
	Project   string             `yaml:"project"`
	Version   int                `yaml:"version"`
	Database  DatabaseConfig     `yaml:"database"`
	Preset    string             `yaml:"preset"`
	Profile   prompt.Profile     `yaml:"profile"`
	WorldInfo worldinfo.Settings `yaml:"world_info"`
	History   HistoryConfig      `yaml:"history"`
	Layers    []Layer            `yaml:"layers"`
	Exclude   []string           `yaml:"exclude"`
	Vector    VectorConfig       `yaml:"vector"`
	Logging   LoggingConfig      `yaml:"logging"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type HistoryConfig struct {
	// Limit caps how many stored messages are loaded per turn.
	Limit int `yaml:"limit"`
	// Window caps the history spliced at a chatHistory anchor. Zero means the whole loaded history.
	Window int `yaml:"window"`
}

// Layer maps a set of lore directories onto one world book.
type Layer struct {
	Name    string   `yaml:"name"`
	Paths   []string `yaml:"paths"`
	Enabled *bool    `yaml:"enabled"`
}

// IsEnabled reports whether the layer's book takes part in turns. Layers are enabled unless set otherwise.
func (l Layer) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

type VectorConfig struct {
	Provider  string  `yaml:"provider"`
	Model     string  `yaml:"model"`
	BaseURL   string  `yaml:"base_url"`
	APIKeyEnv string  `yaml:"api_key_env"`
	Threshold float32 `yaml:"threshold"`
	TopK      int     `yaml:"top_k"`
}

func (v VectorConfig) Enabled() bool {
	p := strings.ToLower(strings.TrimSpace(v.Provider))
	return p != "" && p != "none"
}

func (v VectorConfig) APIKey() string {
	if v.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(v.APIKeyEnv)
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Preset: "preset.yaml",
		WorldInfo: worldinfo.Settings{
			ScanDepth: 2,
		},
		History: HistoryConfig{Limit: 50},
		Vector: VectorConfig{
			Provider:  "none",
			APIKeyEnv: "OPENAI_API_KEY",
			Threshold: 0.75,
			TopK:      5,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return fmt.Errorf("database dsn is required")
	}
	if !strings.HasPrefix(dsn, "sqlite://") && !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("unsupported database dsn scheme: %s", dsn)
	}
	if cfg.WorldInfo.ScanDepth < 0 {
		return fmt.Errorf("world_info scan_depth must not be negative")
	}
	if cfg.WorldInfo.MaxRecursionSteps < 0 {
		return fmt.Errorf("world_info max_recursion_steps must not be negative")
	}
	if cfg.History.Limit < 0 || cfg.History.Window < 0 {
		return fmt.Errorf("history limit and window must not be negative")
	}
	if len(cfg.Layers) == 0 {
		return fmt.Errorf("at least one layer is required")
	}

	seen := make(map[string]struct{})
	for i, layer := range cfg.Layers {
		if strings.TrimSpace(layer.Name) == "" {
			return fmt.Errorf("layer %d name is required", i)
		}
		if len(layer.Paths) == 0 {
			return fmt.Errorf("layer %d paths are required", i)
		}
		key := strings.ToLower(layer.Name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate layer name: %s", layer.Name)
		}
		seen[key] = struct{}{}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Vector.Provider)) {
	case "", "none", "ollama", "openai":
	default:
		return fmt.Errorf("unsupported vector provider: %s", cfg.Vector.Provider)
	}
	if cfg.Vector.Threshold <= 0 || cfg.Vector.Threshold > 1 {
		return fmt.Errorf("vector threshold must be in (0, 1]")
	}

	if err := cfg.Logging.validate(); err != nil {
		return err
	}

	return nil
}

// BookSettings returns the configured defaults for world books built from layers.
func (c *ProjectConfig) BookSettings() worldinfo.Settings {
	return c.WorldInfo
}

func (c *ProjectConfig) LayerByName(name string) (Layer, bool) {
	for _, layer := range c.Layers {
		if strings.EqualFold(layer.Name, name) {
			return layer, true
		}
	}
	return Layer{}, false
}
