package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/solargraph-ai/solarbridge/internal/complete"
	"github.com/solargraph-ai/solarbridge/internal/config"
	"github.com/solargraph-ai/solarbridge/internal/event"
	"github.com/solargraph-ai/solarbridge/internal/logging"
	"github.com/solargraph-ai/solarbridge/internal/server"
	"github.com/solargraph-ai/solarbridge/internal/shutdown"
	"github.com/solargraph-ai/solarbridge/internal/supervisor"
	"github.com/solargraph-ai/solarbridge/internal/workspace"
)

var (
	servePort     int
	serveHostname string
	serveDir      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge HTTP API",
	Long: `Start solarbridge as a local HTTP server for editor integrations.

The solargraph process is spawned lazily on the first analysis request
and torn down again when the bridge receives an interrupt, hang-up or
termination signal.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Pretty: prettyLog})

	bus := event.NewBus()
	defer bus.Close()

	coordinator := shutdown.New()
	coordinator.Start()

	sup := supervisor.New(supervisor.Config{
		Command:        cfg.Command,
		Args:           cfg.Args,
		Host:           cfg.Host,
		StartupTimeout: cfg.StartupTimeout(),
		WaitReady:      cfg.WaitReady,
	}, bus, coordinator)
	defer sup.Close()

	resolver := workspace.NewResolver(cfg.Markers)
	if cfg.WatchWorkspaces {
		watcher, err := workspace.NewWatcher(resolver, bus)
		if err != nil {
			logging.Warn().Err(err).Msg("workspace watching disabled")
		} else {
			watcher.Start()
			coordinator.Register("workspace-watcher", func() { _ = watcher.Stop() })
		}
	}

	orch := complete.New(sup, resolver, nil, bus)

	serverCfg := server.DefaultConfig()
	if cfg.Server != nil {
		if cfg.Server.Port != 0 {
			serverCfg.Port = cfg.Server.Port
		}
		if cfg.Server.Hostname != "" {
			serverCfg.Hostname = cfg.Server.Hostname
		}
		serverCfg.EnableCORS = cfg.Server.CORSEnabled()
	}
	if servePort != 0 {
		serverCfg.Port = servePort
	}
	if serveHostname != "" {
		serverCfg.Hostname = serveHostname
	}

	srv := server.New(serverCfg, orch, sup)

	coordinator.Register("http-api", func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("HTTP shutdown error")
		}
	})

	unsubscribe := bus.SubscribeAll(func(e event.Event) {
		logging.Debug().Str("event", string(e.Type)).Interface("data", e.Data).Msg("bridge event")
	})
	defer unsubscribe()

	logging.Info().
		Str("hostname", serverCfg.Hostname).
		Int("port", serverCfg.Port).
		Str("command", cfg.Command).
		Msg("bridge listening")

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-coordinator.Done()
	logging.Info().Msg("bridge stopped")
	return nil
}
