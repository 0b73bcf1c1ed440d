// Command durabletask-worker runs a generic durable-task worker process
// against a YAML config file, the same role cmd/warren's "worker start"
// subcommand plays for a Warren node. It registers no activities,
// orchestrators or entities of its own — a host application that has
// real task code to run embeds pkg/worker directly (registry.NewBuilder
// plus worker.New) rather than shelling out to this binary. This command
// exists to prove out the connection, versioning and diagnostics wiring
// end to end, and as a starting point to copy into a real host's main.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/durabletask/pkg/config"
	"github.com/cuemby/durabletask/pkg/diag"
	"github.com/cuemby/durabletask/pkg/log"
	"github.com/cuemby/durabletask/pkg/metrics"
	"github.com/cuemby/durabletask/pkg/payloadstore"
	"github.com/cuemby/durabletask/pkg/registry"
	"github.com/cuemby/durabletask/pkg/versioning"
	"github.com/cuemby/durabletask/pkg/worker"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "durabletask-worker",
	Short:   "Durable-task worker process",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("durabletask-worker %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildTime))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

// fileConfig is the YAML shape accepted by -f, mirroring cmd/warren's
// apply.go convention of a small yaml-tagged struct read straight off disk.
type fileConfig struct {
	ConnectionString            string   `yaml:"connectionString"`
	WorkerID                     string   `yaml:"workerId"`
	DataDir                      string   `yaml:"dataDir"`
	MaxConcurrentActivities      int64    `yaml:"maxConcurrentActivities"`
	MaxConcurrentOrchestrations  int64    `yaml:"maxConcurrentOrchestrations"`
	ActivityTimeoutSeconds       int64    `yaml:"activityTimeoutSeconds"`
	EnableEntitySupport          bool     `yaml:"enableEntitySupport"`
	ExternalPayloadThresholdKB   int      `yaml:"externalPayloadThresholdKB"`
	DefaultVersion               string   `yaml:"defaultVersion"`
	MatchStrategy                string   `yaml:"matchStrategy"`
	FailureStrategy              string   `yaml:"failureStrategy"`
	DiagAddr                     string   `yaml:"diagAddr"`
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the worker and connect to the scheduler",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringP("file", "f", "", "YAML config file")
	startCmd.Flags().String("connection-string", "", "Scheduler connection string (overrides the file)")
	startCmd.Flags().String("worker-id", "", "Worker id advertised to the scheduler")
	startCmd.Flags().String("data-dir", "./durabletask-worker-data", "Data directory for the payload store")
	startCmd.Flags().String("diag-addr", "127.0.0.1:8090", "Address for /metrics, /health, /ready, /live")
}

func runStart(cmd *cobra.Command, args []string) error {
	fc, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}

	if cs, _ := cmd.Flags().GetString("connection-string"); cs != "" {
		fc.ConnectionString = cs
	}
	if id, _ := cmd.Flags().GetString("worker-id"); id != "" {
		fc.WorkerID = id
	}
	if fc.DataDir == "" {
		fc.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	diagAddr, _ := cmd.Flags().GetString("diag-addr")
	if fc.DiagAddr != "" {
		diagAddr = fc.DiagAddr
	}

	metrics.SetVersion(Version)

	store, err := payloadstore.NewBoltPayloadStore(fc.DataDir)
	if err != nil {
		return fmt.Errorf("open payload store: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent("payloadstore", true, "open")

	// A host application with real task code builds its own
	// converter.New(store, ...) around this same payload store when
	// constructing the activities/orchestrators it registers; this binary
	// registers none, so the registry below is empty.

	factory, err := registry.NewBuilder().Build()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	opts := config.Options{
		ConnectionString:            fc.ConnectionString,
		MaxConcurrentActivities:     fc.MaxConcurrentActivities,
		MaxConcurrentOrchestrations: fc.MaxConcurrentOrchestrations,
		ActivityTimeout:             time.Duration(fc.ActivityTimeoutSeconds) * time.Second,
		ExternalPayloadThreshold:    fc.ExternalPayloadThresholdKB * 1024,
		EnableEntitySupport:         fc.EnableEntitySupport,
		WorkerID:                    fc.WorkerID,
		Versioning: versioning.Options{
			DefaultVersion:  fc.DefaultVersion,
			MatchStrategy:   versioning.MatchStrategy(fc.MatchStrategy),
			FailureStrategy: versioning.FailureStrategy(fc.FailureStrategy),
		},
	}
	opts, err = opts.Normalize()
	if err != nil {
		return err
	}

	w, err := worker.New(opts, factory)
	if err != nil {
		return fmt.Errorf("construct worker: %w", err)
	}

	logSub := w.Events().Subscribe()
	go func() {
		for ev := range logSub {
			log.WithComponent("worker").Info().Str("event", string(ev.Type)).Msg(ev.Message)
		}
	}()

	diagServer := diag.New(diagAddr)
	diagErrCh := diagServer.Start()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	color.Green("durabletask-worker starting")
	fmt.Printf("  Worker ID: %s\n", opts.WorkerID)
	fmt.Printf("  Diagnostics: http://%s/health\n", diagAddr)

	startErrCh := make(chan error, 1)
	go func() { startErrCh <- w.Start(ctx) }()

	select {
	case <-sigCh:
		fmt.Println("\nshutting down...")
		cancel()
		w.Stop()
	case err := <-startErrCh:
		cancel()
		if err != nil && err != context.Canceled {
			color.Red("worker exited: %v", err)
		}
	case err := <-diagErrCh:
		cancel()
		w.Stop()
		if err != nil {
			return fmt.Errorf("diagnostics server: %w", err)
		}
	}

	_ = diagServer.Shutdown(5 * time.Second)
	color.Green("shutdown complete")
	return nil
}

func loadFileConfig(cmd *cobra.Command) (fileConfig, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return fileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}
