// Package commands provides the CLI commands for the EchoMail server.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "echomail-server",
	Short: "EchoMail - voice-driven email assistant backend",
	Long: `EchoMail is the backend for a voice-driven Gmail assistant. Clients
authenticate with a JWT and talk to their agent over a Server-Sent
Events stream; the agent reads, searches, sends, and labels email on
their behalf and can speak its answers.

Run 'echomail-server serve' to start the HTTP server.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("echomail-server %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
