package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const projectTemplate = `project: %s
version: 1

database:
  dsn: sqlite://./promptloom.db

preset: preset.yaml

profile:
  user_name: User
  char_name: Narrator
  char_description: ""
  persona_description: ""

world_info:
  scan_depth: 2
  max_recursion_steps: 2
  include_names: false
  case_sensitive: false
  match_whole_words: true

history:
  limit: 50

layers:
  - name: %s
    paths:
      - ./lore/

exclude:
  - ./lore/drafts/

vector:
  provider: none

logging:
  level: info
  format: console
`

const presetTemplate = `version: 1
name: default
items:
  - identifier: main
    name: Main prompt
    role: system
    enabled: true
    injection_position: before
    content: "You are {{char}}, talking with {{user}}."
  - identifier: worldInfoBefore
    name: World info (before)
    enabled: true
    is_placeholder: true
    placeholder_type: worldInfoBefore
    implemented: true
    injection_position: before
  - identifier: charDescription
    name: Character description
    enabled: true
    is_placeholder: true
    placeholder_type: charDescription
    implemented: true
    injection_position: before
  - identifier: chatHistory
    name: Chat history
    enabled: true
    is_placeholder: true
    placeholder_type: chatHistory
    implemented: true
    injection_position: before
  - identifier: worldInfoAfter
    name: World info (after)
    enabled: true
    is_placeholder: true
    placeholder_type: worldInfoAfter
    implemented: true
    injection_depth: 1
    injection_order: 100
  - identifier: jailbreak
    name: Post-history instructions
    role: system
    enabled: true
    injection_depth: 0
    injection_order: 100
    content: "Stay in character."
`

var sampleLore = map[string]string{
	"setting.md": "---\ntitle: Setting\nstrategy: constant\n---\nSetting: A medieval kingdom.\n",
	"dragons.md": "---\ntitle: Dragons\nkeys: [dragon, wyrm]\n---\nDragons are feared here.\n",
}

func initCmd() *cobra.Command {
	var projectName string
	var bookName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new promptloom project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName, bookName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&bookName, "book", "setting", "Name of the world book built from ./lore")
	return cmd
}

func runInit(projectName, bookName string) error {
	presetPath := filepath.Join(filepath.Dir(configPath), "preset.yaml")
	loreDir := filepath.Join(filepath.Dir(configPath), "lore")
	for _, path := range []string{configPath, presetPath} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	configContents := fmt.Sprintf(projectTemplate, projectName, bookName)
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(presetPath, []byte(presetTemplate), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", presetPath, err)
	}

	if err := os.MkdirAll(loreDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", loreDir, err)
	}
	for name, contents := range sampleLore {
		path := filepath.Join(loreDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	fmt.Fprintf(os.Stdout, "Created %s, %s and %s/.\n", configPath, presetPath, loreDir)
	return nil
}
