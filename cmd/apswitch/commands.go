package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/certs"
	"github.com/muurk/apswitch/internal/config"
	"github.com/muurk/apswitch/internal/discovery"
	"github.com/muurk/apswitch/internal/logging"
	"github.com/muurk/apswitch/internal/network"
	"github.com/muurk/apswitch/internal/pages"
	"github.com/muurk/apswitch/internal/server"
	"github.com/muurk/apswitch/internal/ui"
	"github.com/muurk/apswitch/internal/version"
)

// Run command and flags
var (
	secretsPath string
	ifaceName   string
	dryRun      bool
	listenAddr  string
	port        int
	logLevel    string
	runDir      string
	noBanner    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bring up the access point and serve the status site",
	Long: `Bring up the access point and serve the status site until interrupted.

Steps, in order:
  1. set the hostname
  2. disable packet forwarding
  3. assign the static address to the wireless interface
  4. start hostapd
  5. hand out addresses over DHCP (no router option)
  6. load the TLS credential and start the HTTPS server
  7. advertise <hostname>.local over mDNS

If no TLS credential is configured, a bundled example certificate is used
and a warning is logged. Never use it outside a lab.

With --dry-run no system state is changed: the bring-up steps are logged
instead of applied, no DHCP or mDNS sockets are opened, and the server
listens on 127.0.0.1 unless --listen is given.`,
	Example: `  # Run with compiled-in settings
  sudo apswitch run

  # Override secrets from a file
  sudo apswitch run --secrets /etc/apswitch/secrets.yaml

  # Try it off-device
  apswitch run --dry-run --port 8443 --log-level debug`,
	RunE: runAP,
}

func init() {
	runCmd.Flags().StringVar(&secretsPath, "secrets", "", "Path to a YAML secrets file (SSID, passphrase, TLS credential)")
	runCmd.Flags().StringVar(&ifaceName, "interface", "", "Wireless interface (default from settings)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log bring-up steps instead of applying them")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address override (default <device-ip>:<port>)")
	runCmd.Flags().IntVar(&port, "port", 0, "HTTPS port (default from settings)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, silent); default $"+logging.LogLevelEnvVar+" or info")
	runCmd.Flags().StringVar(&runDir, "run-dir", "/run/apswitch", "Directory for hostapd.conf and the hostapd pid file")
	runCmd.Flags().BoolVar(&noBanner, "no-banner", false, "Do not print the startup banner")
}

func runAP(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(secretsPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if ifaceName != "" {
		settings.Interface = ifaceName
	}
	if port != 0 {
		settings.Port = port
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	addr := listenAddr
	if addr == "" && dryRun {
		addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(settings.Port))
	}
	if addr == "" {
		addr = settings.ListenAddr()
	}

	if !noBanner {
		fmt.Fprintln(cmd.OutOrStdout(), banner(settings, addr).Render())
	}

	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, recorder := newManager()

	identity := network.Identity{
		SSID:       settings.SSID,
		Passphrase: settings.Passphrase,
		Hostname:   settings.Hostname,
		Interface:  settings.Interface,
		IP:         settings.IP(),
		Gateway:    settings.Gateway(),
		Mask:       settings.Mask(),
	}

	info, err := manager.BringUp(ctx, identity)
	if recorder != nil {
		for _, op := range recorder.Ops() {
			logging.Info("dry-run", zap.String("op", op))
		}
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Teardown(context.Background()); err != nil {
			logging.Warn("Teardown failed", zap.Error(err))
		}
	}()

	if !dryRun {
		dhcp, err := network.NewDHCPServer(identity)
		if err != nil {
			return err
		}
		if err := dhcp.Start(ctx); err != nil {
			return err
		}
		defer dhcp.Close()
	}

	logging.Info("AP ready", zap.String("ssid", info.SSID), zap.String("address", info.CIDR))

	cred, err := config.ResolveCredential(settings)
	if err != nil {
		return err
	}
	if err := config.CheckCredential(cred, time.Now()); err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Settings:   settings,
		Credential: cred,
		Pages: pages.New(pages.Identity{
			Title:           settings.RootWebTitle,
			Hostname:        settings.Hostname,
			FirmwareVersion: version.Version,
		}, pages.NewSystemMetrics()),
		ListenAddr: addr,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return err
	}

	if dryRun {
		logging.Info("Skipping mDNS advertisement in dry-run mode")
	} else {
		adv, err := network.Advertise(info, settings.Port, map[string]string{
			network.TXTKeyVersion: version.Version,
			"path":                "/",
		})
		if err != nil {
			// The site is still reachable by address.
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
		defer adv.Shutdown()
	}

	return srv.Serve(ctx)
}

func newManager() (*network.Manager, *network.DryRunRecorder) {
	if dryRun {
		return network.NewDryRunManager(runDir)
	}
	if err := os.MkdirAll(runDir, 0700); err != nil {
		logging.Warn("Failed to create run directory", zap.String("dir", runDir), zap.Error(err))
	}
	return network.NewManager(runDir), nil
}

func banner(s *config.Settings, addr string) *ui.Header {
	mode := "live"
	if dryRun {
		mode = "dry-run"
	}
	return ui.NewHeader(s.RootWebTitle, "apswitch run",
		ui.Param{Key: "SSID", Value: s.SSID},
		ui.Param{Key: "Hostname", Value: s.Hostname + ".local"},
		ui.Param{Key: "Interface", Value: s.Interface},
		ui.Param{Key: "Address", Value: s.CIDR()},
		ui.Param{Key: "Listen", Value: addr},
		ui.Param{Key: "Console", Value: fmt.Sprintf("%d baud", s.SerialSpeed)},
		ui.Param{Key: "Mode", Value: mode},
		ui.Param{Key: "Version", Value: version.Full()},
	)
}

// Render command
var renderSecrets string

var renderCmd = &cobra.Command{
	Use:       "render [root|admin|notfound]",
	Short:     "Print a rendered page",
	Long:      `Render one of the site's pages with the current settings and live metrics, and print the HTML.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"root", "admin", "notfound"},
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(renderSecrets)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		set := pages.New(pages.Identity{
			Title:           settings.RootWebTitle,
			Hostname:        settings.Hostname,
			FirmwareVersion: version.Version,
		}, pages.NewSystemMetrics())

		var html string
		switch args[0] {
		case "root":
			html = set.Root(cmd.Context())
		case "admin":
			html = set.Admin()
		case "notfound":
			html = set.NotFound()
		}
		fmt.Fprint(cmd.OutOrStdout(), html)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderSecrets, "secrets", "", "Path to a YAML secrets file")
}

// Gencert command
var (
	gencertOut     string
	gencertSecrets string
	gencertDays    int
)

var gencertCmd = &cobra.Command{
	Use:   "gencert",
	Short: "Generate a self-signed TLS credential for the access point",
	Long: `Generate an ECDSA P-256 self-signed certificate for the configured hostname
(<hostname> and <hostname>.local) and device address, and write cert.pem and
key.pem to the output directory.

Point tls_cert_file and tls_key_file in the secrets file at the result.`,
	Example: `  apswitch gencert --out /etc/apswitch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(gencertSecrets)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		params := certs.DefaultCertParams(settings.Hostname, settings.IP())
		if gencertDays > 0 {
			params.ValidDays = gencertDays
		}

		cred, err := certs.GenerateSelfSigned(params)
		if err != nil {
			return err
		}

		certPath := filepath.Join(gencertOut, "cert.pem")
		keyPath := filepath.Join(gencertOut, "key.pem")
		if err := certs.WriteFiles(cred, certPath, keyPath); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.NewFailureResult("Certificate not written", err, []string{
				"Check that " + gencertOut + " exists and is writable",
			}).Render())
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.NewSuccessResult("Certificate written",
			ui.Param{Key: "Subject", Value: cred.Subject()},
			ui.Param{Key: "Expires", Value: cred.Leaf().NotAfter.Format(time.RFC3339)},
			ui.Param{Key: "Certificate", Value: certPath},
			ui.Param{Key: "Key", Value: keyPath},
		).Render())
		return nil
	},
}

func init() {
	gencertCmd.Flags().StringVar(&gencertOut, "out", ".", "Output directory")
	gencertCmd.Flags().StringVar(&gencertSecrets, "secrets", "", "Path to a YAML secrets file")
	gencertCmd.Flags().IntVar(&gencertDays, "days", 0, "Validity in days (default from certificate parameters)")
}

// Find command
var (
	findTimeout time.Duration
	findHost    string
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find apswitch status sites on the local network",
	Long: `Browse mDNS for running access points. Run this from a client that has
joined the access point's network.`,
	Example: `  apswitch find
  apswitch find --host deadspace001 --timeout 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := discovery.NewScanner()
		scanner.Timeout = findTimeout

		var found []*discovery.AccessPoint
		if findHost != "" {
			ap, err := scanner.WaitFor(cmd.Context(), findHost)
			if err != nil {
				return err
			}
			found = append(found, ap)
		} else {
			aps, err := scanner.Scan(cmd.Context())
			if err != nil {
				return err
			}
			found = aps
		}

		if len(found) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No access points found")
			return nil
		}
		for _, ap := range found {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", ap.BaseURL(), ap)
		}
		return nil
	},
}

func init() {
	findCmd.Flags().DurationVar(&findTimeout, "timeout", discovery.DefaultScanTimeout, "How long to wait for answers")
	findCmd.Flags().StringVar(&findHost, "host", "", "Stop at the first access point with this hostname")
}
