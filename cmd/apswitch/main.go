// Apswitch turns a Linux device with a wireless interface into an isolated
// Wi-Fi access point serving a small HTTPS status site.
//
// Clients that join the network can open https://<hostname>.local/ to see
// the device identity and live system metrics. Nothing is routed beyond the
// access point.
//
// Usage:
//
//	apswitch run [flags]
//
// See 'apswitch --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/apswitch/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apswitch",
	Short: "Isolated access point with an HTTPS status page",
	Long: `Bring up an isolated Wi-Fi access point and serve a status site over HTTPS.

The access point uses a fixed identity (SSID, passphrase, hostname, static
address). Packet forwarding is disabled, so clients can only reach the device
and each other.

The web server answers one request at a time on a single goroutine:
  /        status page with device identity and live metrics (GET only)
  /admin   login form (any method)
  other    404 page`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(gencertCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "apswitch %s (commit: %s)\n", version.Version, version.Commit)
	},
}
