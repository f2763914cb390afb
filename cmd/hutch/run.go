package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/system"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a subsystem topology from a YAML file",
	Long: `Build the subsystems declared in a topology file, start the
autostart roots, and keep the tree alive until SIGINT/SIGTERM. On
shutdown every subsystem is destroyed and the command waits for all
workers to exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		// The topology's log level wins unless --log-level was given.
		if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
			log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: flagLogJSON})
		}

		logger := log.WithComponent("run")

		if metricsAddr != "" {
			metrics.Register()
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			go func() {
				logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Error().Err(err).Msg("metrics server failed")
				}
			}()
		}

		sys := system.New(cfg.MaxSubsystems)

		sub := sys.Broker.Subscribe()
		defer sys.Broker.Unsubscribe(sub)
		go func() {
			for n := range sub {
				switch n.Type {
				case events.TypeTransition:
					logger.Info().Str("subsystem", n.Name).
						Stringer("from", n.From).Stringer("to", n.To).
						Msg("transition")
				case events.TypeDeregistered:
					logger.Info().Str("subsystem", n.Name).Msg("deregistered")
				}
			}
		}()

		built, err := sys.Apply(cfg)
		if err != nil {
			return err
		}
		logger.Info().Int("subsystems", len(built)).Str("file", path).Msg("topology built")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sys.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info().Msg("all subsystems destroyed")
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("file", "f", "topology.yaml", "Path to the topology file")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}
