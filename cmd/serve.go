/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/josephgoksu/PageWing/internal/config"
	"github.com/josephgoksu/PageWing/internal/server"
	"github.com/josephgoksu/PageWing/internal/telemetry"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the round API server",
	Long: `Start the HTTP API that accepts rounds.

POST /app (or /api/rounds) with the shared secret runs a round: the model is
asked for the site's files, the result is committed to GitHub, Pages is
enabled and the evaluation URL is notified in the background.

Required configuration: server.secret, github.token and github.owner
(or API_SECRET, GITHUB_TOKEN and GITHUB_USERNAME in the environment).

Examples:
  pagewing serve
  pagewing serve --port 9000
  pagewing serve --config ./deploy/pagewing.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	log := appLog.Named("serve")

	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	st, err := buildStack(cmd.Context(), cfg, log, stackOptions{notify: true})
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := server.New(server.Options{Port: port, Secret: cfg.Server.Secret}, server.Deps{
		Runner:  st.runner,
		Ledger:  st.ledger,
		Locks:   st.locks,
		Drainer: st.notifier,
		Log:     log,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	config.Watch(log, logLevel)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	srv.Start(&wg, errChan)
	st.telemetry.Track(telemetry.EventServerStarted, telemetry.Properties{
		"ledger_driver": cfg.Ledger.Driver,
		"llm_provider":  cfg.LLM.Provider,
	})

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		log.Info("shutting down", zap.Stringer("signal", sig))
	case runErr = <-errChan:
		log.Error("server stopped", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
	wg.Wait()
	log.Info("stopped")

	return runErr
}
