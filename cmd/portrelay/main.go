// Command portrelay is a port-based L4 forwarder: it relays UDP datagrams
// and TCP byte streams between configured source and destination sockets,
// with a side-car HTTP control plane for rule CRUD. Grounded on the
// teacher's cmd/orris/main.go (cobra root command) and
// internal/interfaces/cli/server/command.go (signal-driven graceful
// shutdown), collapsed to the single executable spec.md §6 describes
// instead of the teacher's server/migrate subcommand split.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"portrelay/internal/config"
	"portrelay/internal/httpapi"
	"portrelay/internal/rule"
	"portrelay/internal/session"
	"portrelay/internal/shared/logger"
)

const version = "0.1.0"

var (
	configFile   string
	configString string
	verbosity    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "portrelay",
		Short:   "A small port-based L4 forwarder",
		Long:    "portrelay relays UDP datagrams and TCP connections between configured source and destination sockets, with an HTTP control plane for managing forwarding rules.",
		Version: version,
		RunE:    run,
	}

	rootCmd.Flags().StringVar(&configFile, "config-file", "config.json", "path to the JSON configuration file")
	rootCmd.Flags().StringVar(&configString, "config-string", "", "literal JSON configuration (wins over --config-file if both are set)")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase logging verbosity (repeatable)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, v, err := config.Load(configFile, configString)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logger.Level
	if level == "" {
		level = logger.VerbosityToLevel(verbosity)
	}
	if envLevel := os.Getenv("PORTRELAY_LOG_LEVEL"); envLevel != "" {
		level = envLevel
	}
	log := logger.New(logger.Config{Level: level, Format: cfg.Logger.Format})

	store := rule.NewStore()
	for _, r := range cfg.Rules {
		if _, err := store.Create(r); err != nil {
			return fmt.Errorf("failed to load rule from config: %w", err)
		}
	}

	manager := session.NewManager(store, log)
	manager.StartExisting()

	if configString == "" {
		config.WatchForNewRules(v, manager, log)
	}

	addr, ephemeral, warning := config.ResolveWebAddress(cfg.Web)
	if warning != "" {
		log.Warn(warning)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind control plane address %s: %w", addr, err)
	}
	if ephemeral {
		log.Info("control plane bound to ephemeral port", "address", listener.Addr().String())
	} else {
		log.Info("control plane listening", "address", listener.Addr().String())
	}

	handler := httpapi.NewHandler(manager, log)
	srv := &http.Server{
		Handler:      httpapi.NewEngine(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	managerDone := make(chan error, 1)
	go func() { managerDone <- manager.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	managerExited := false

	select {
	case <-quit:
		log.Info("shutting down")
	case err := <-serverDone:
		if err != nil {
			log.Error("control plane server failed", "error", err)
		}
	case err := <-managerDone:
		managerExited = true
		if err != nil {
			log.Error("session manager exited with error", "error", err)
		}
	}

	_ = manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("control plane server forced to shutdown", "error", err)
	}

	if !managerExited {
		<-managerDone
	}
	log.Info("shutdown complete")
	return nil
}
