// Package cli wires the poinbot command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "poinbot",
	Short: "A chat engagement bot with points, tasks, and games",
	Long: `poinbot runs a chat-driven engagement bot: users claim daily bonuses,
complete timed verification tasks for points, play a number guessing game,
and talk to an AI assistant. Frontends connect over HTTP: POST inbound
messages and read replies from a per-user SSE stream.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.poinbot/config.toml)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the poinbot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("poinbot %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
