package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
)

type presetFile struct {
	Version int           `yaml:"version"`
	Name    string        `yaml:"name"`
	Items   []preset.Item `yaml:"items"`
}

// LoadPreset reads a preset.yaml file. Item list order is kept as written.
func LoadPreset(path string) (*preset.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading preset: %w", err)
	}
	return ParsePreset(data)
}

func ParsePreset(data []byte) (*preset.Preset, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("loading preset: %w", err)
	}
	if err := validatePreset(&file); err != nil {
		return nil, fmt.Errorf("loading preset: %w", err)
	}
	return &preset.Preset{Name: file.Name, Items: file.Items}, nil
}

func validatePreset(file *presetFile) error {
	if file.Version != 1 {
		return fmt.Errorf("unsupported version: %d", file.Version)
	}
	if strings.TrimSpace(file.Name) == "" {
		return fmt.Errorf("preset name is required")
	}

	seen := make(map[string]struct{}, len(file.Items))
	for i, item := range file.Items {
		id := strings.TrimSpace(item.Identifier)
		if id == "" {
			return fmt.Errorf("item %d identifier is required", i)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("duplicate item identifier: %s", id)
		}
		seen[id] = struct{}{}

		if role := chat.Role(strings.ToLower(strings.TrimSpace(string(item.Role)))); role != "" && !role.Valid() {
			return fmt.Errorf("item %s has invalid role: %s", id, item.Role)
		}
		if _, ok := preset.ParsePosition(string(item.InjectionPosition)); !ok {
			return fmt.Errorf("item %s has invalid injection_position: %s", id, item.InjectionPosition)
		}
		if item.IsPlaceholder && strings.TrimSpace(item.PlaceholderType) == "" {
			return fmt.Errorf("item %s is a placeholder without placeholder_type", id)
		}
	}
	return nil
}

// MarshalPreset renders a preset back into the preset.yaml layout.
func MarshalPreset(p preset.Preset) ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []preset.Item{}
	}
	data, err := yaml.Marshal(presetFile{Version: 1, Name: p.Name, Items: items})
	if err != nil {
		return nil, fmt.Errorf("encoding preset: %w", err)
	}
	return data, nil
}
