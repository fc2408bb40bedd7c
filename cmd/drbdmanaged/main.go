package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drbdmanage/drbdmanaged/pkg/admin"
	"github.com/drbdmanage/drbdmanaged/pkg/config"
	"github.com/drbdmanage/drbdmanaged/pkg/deploypolicy"
	"github.com/drbdmanage/drbdmanaged/pkg/eventstream"
	"github.com/drbdmanage/drbdmanaged/pkg/log"
	"github.com/drbdmanage/drbdmanaged/pkg/metrics"
	"github.com/drbdmanage/drbdmanaged/pkg/notify"
	"github.com/drbdmanage/drbdmanaged/pkg/persistence"
	"github.com/drbdmanage/drbdmanaged/pkg/reconciler"
	"github.com/drbdmanage/drbdmanaged/pkg/secretgen"
	"github.com/drbdmanage/drbdmanaged/pkg/server"
	"github.com/drbdmanage/drbdmanaged/pkg/storage"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "drbdmanaged",
	Short:   "drbdmanaged - distributed management daemon for DRBD9 clusters",
	Long:    `drbdmanaged tracks cluster configuration, allocates cluster-unique identifiers, and reconciles DRBD resources toward their configured target state.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"drbdmanaged version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the drbdmanaged daemon on this node",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeName, _ := cmd.Flags().GetString("node-name")
		configPath, _ := cmd.Flags().GetString("config")
		ctrlDataPath, _ := cmd.Flags().GetString("ctrl-data-path")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		if nodeName == "" {
			return fmt.Errorf("--node-name is required")
		}

		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config %s: %w", configPath, err)
			}
			cfg = loaded
		}

		registry := storage.NewRegistry()
		backend, err := registry.New(cfg.StoragePlugin, storage.Config{
			VolumeGroup: cfg.DrbdctrlVG,
			BinaryPath:  cfg.DrbdadmPath,
		})
		if err != nil {
			return fmt.Errorf("failed to build storage backend %q: %w", cfg.StoragePlugin, err)
		}

		tool := admin.NewTool(cfg.DrbdadmPath, cfg.ExtendPath)
		writer := admin.NewWriter(cfg.DrbdConfPath)

		policy, err := buildPolicy(cfg)
		if err != nil {
			return fmt.Errorf("failed to build deployer policy %q: %w", cfg.DeployerPlugin, err)
		}

		gateway, err := persistence.NewFileGatewayWithCache(
			filepath.Join(ctrlDataPath, "drbdctrl.dat"),
			filepath.Join(ctrlDataPath, "warmstart.db"),
		)
		if err != nil {
			return fmt.Errorf("failed to open warm-start cache: %w", err)
		}
		defer gateway.CloseCache()

		cc := types.NewClusterConfig()
		if seedSession, err := gateway.Open(cmd.Context(), false); err == nil {
			_ = seedSession.Load(cc)
			seedSession.Close()
		} else if ok, werr := gateway.WarmStart(cc); werr == nil && ok {
			log.Errorf("control volume unreachable, bootstrapped from warm-start cache: %v", err)
		}

		control, err := loadControlVolume(ctrlDataPath, cfg)
		if err != nil {
			return fmt.Errorf("failed to load control volume parameters: %w", err)
		}

		broker := notify.NewBroker()
		broker.Start()
		defer broker.Stop()

		engine := reconciler.NewEngine(gateway, backend, tool, writer, broker, control, nodeName, cc)

		srv := server.New(gateway, backend, tool, writer, broker, engine, policy, cfg, control, nodeName, cc)
		_ = srv // the façade is wired for a future transport binding (spec §6)

		collector := metrics.NewCollector()
		collector.SetClusterConfig(cc)
		collector.Start()
		defer collector.Stop()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("persistence", true, "ready")
		metrics.RegisterComponent("eventstream", false, "starting")
		metrics.RegisterComponent("rpc", true, "façade ready")

		go func() {
			http.Handle("/metrics", metrics.Handler())
			http.Handle("/health", metrics.HealthHandler())
			http.Handle("/ready", metrics.ReadyHandler())
			http.Handle("/live", metrics.LivenessHandler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server error: %v", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", metricsAddr)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if err := engine.InitialUp(ctx); err != nil {
			log.Errorf("initial_up failed: %v", err)
		}

		supervisor := eventstream.NewSupervisor(tool.DrbdadmPath, admin.DrbdctrlResName())
		engine.Start(ctx, supervisor.Triggered)

		supervisorErrCh := make(chan error, 1)
		go func() {
			supervisorErrCh <- supervisor.Run(ctx)
		}()
		metrics.RegisterComponent("eventstream", true, "watching events2")

		fmt.Println("drbdmanaged is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-supervisorErrCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "\nevent stream supervisor exited: %v\n", err)
			}
		}

		cancel()
		engine.Stop()
		if _, err := tool.Down(context.Background(), admin.DrbdctrlResName()); err != nil {
			log.Errorf("down control resource during shutdown: %v", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	runCmd.Flags().String("node-name", "", "This node's name, matching its types.Node identity (required)")
	runCmd.Flags().String("config", "", "Path to the server configuration file (defaults if unset)")
	runCmd.Flags().String("ctrl-data-path", "/var/lib/drbdmanaged", "Directory holding the control volume's persisted state")
	runCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for the Prometheus metrics/health HTTP server")
	runCmd.MarkFlagRequired("node-name")
}

func buildPolicy(cfg config.Config) (deploypolicy.Policy, error) {
	switch cfg.DeployerPlugin {
	case "", "Balanced":
		return deploypolicy.NewBalanced(deploypolicy.Config{}), nil
	default:
		return nil, fmt.Errorf("unknown deployer plugin %q", cfg.DeployerPlugin)
	}
}

// loadControlVolume returns the fixed parameters of the control resource
// (spec §6), generating and persisting a secret on first run. Port and
// minor number are reserved constants, not allocated from the regular
// pools, since the control resource itself carries the allocator state.
func loadControlVolume(ctrlDataPath string, cfg config.Config) (reconciler.ControlVolume, error) {
	const (
		controlPort    = 6996
		controlMinorNr = 0
	)
	devicePath := fmt.Sprintf("/dev/%s/.drbdctrl_00", cfg.DrbdctrlVG)
	secretPath := filepath.Join(ctrlDataPath, "drbdctrl.secret")

	if data, err := os.ReadFile(secretPath); err == nil {
		return reconciler.ControlVolume{
			Port:       controlPort,
			MinorNr:    controlMinorNr,
			DevicePath: devicePath,
			Secret:     string(data),
		}, nil
	}

	secret, err := secretgen.New()
	if err != nil {
		return reconciler.ControlVolume{}, err
	}
	if err := os.MkdirAll(ctrlDataPath, 0700); err != nil {
		return reconciler.ControlVolume{}, err
	}
	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		return reconciler.ControlVolume{}, err
	}
	return reconciler.ControlVolume{
		Port:       controlPort,
		MinorNr:    controlMinorNr,
		DevicePath: devicePath,
		Secret:     secret,
	}, nil
}
