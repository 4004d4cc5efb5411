package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	gatewayURL string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "playctl",
	Short: "playctl - authorize and play entitlement-gated media",
	Long:  `playctl talks to a vodgate gateway, obtains signed CDN cookies and plays the returned HLS source.`,
	Example: `  # Authorize a video as a signed-in user
  playctl authorize --user u-123 --video video-1 --id-token "$ID_TOKEN"

  # Play a public livestream
  playctl play --livestream live-1 --public

  # Decode a signed cookie value
  playctl inspect 'URLPrefix=...:Expires=...:KeyName=...:Signature=...'`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", envOr("VODGATE_GATEWAY", "http://localhost:8080"), "vodgate gateway base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(inspectCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
