// Command numerid is the Kernel entry point: load config from
// NUMERI_CONFIG_PATH, start the Kernel and the admin introspection server,
// wait for SIGINT/SIGTERM, and shut both down in order (spec §4.6/§6).
//
// Exit codes (spec §6):
//
//	0 — normal shutdown
//	1 — config error (missing/invalid NUMERI_CONFIG_PATH, failed Validate)
//	2 — fatal plugin load error: Start returns an error when a plugin spec
//	    marked "required": true fails to load or init (ordinary, non-
//	    required plugin failures are still logged and skipped, per
//	    spec §4.4/§7)
//	3 — runtime crash / invariant violation (kernel.FatalInvariant)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"numeri/internal/admin"
	"numeri/internal/config"
	"numeri/internal/kernel"
)

const (
	exitOK         = 0
	exitConfig     = 1
	exitPluginLoad = 2
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfgPath, err := config.PathFromEnv()
	if err != nil {
		logger.Error("config path not set", "error", err)
		os.Exit(exitConfig)
	}

	k, err := kernel.New(cfgPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(exitConfig)
	}

	if err := k.Start(); err != nil {
		logger.Error("failed to start kernel", "error", err)
		os.Exit(exitPluginLoad)
	}

	adminAddr := os.Getenv("NUMERI_ADMIN_ADDR")
	if adminAddr == "" {
		adminAddr = ":9090"
	}
	adminServer := admin.NewServer(adminAddr, k, k.Registry(), logger)
	go func() {
		if err := adminServer.Start(); err != nil {
			logger.Error("admin server failed", "error", err)
		}
	}()

	logger.Info("numerid started", "admin_addr", adminAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop admin server", "error", err)
	}

	k.Stop()
	os.Exit(exitOK)
}
