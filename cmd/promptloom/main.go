package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "promptloom",
		Short:        "Context assembly for roleplay chat: world info, presets and history",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "promptloom.yaml", "Path to the project config")
	root.AddCommand(initCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(presetCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(buildCmd())
	root.AddCommand(activateCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(listCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
