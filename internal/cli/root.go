// Package cli defines Cobra command definitions for the adminctl binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Staged ad-video generation session service",
	Long: `adminctl runs the session core for the staged ad-video generation
workflow. Sessions progress story -> reference_image -> storyboard -> video,
each stage gated on explicit user approval, with regeneration steered by
conversational feedback and progress pushed over a per-session websocket.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd)
}
