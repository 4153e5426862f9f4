// Command wayclipd is a clipboard history daemon for wlroots-based
// Wayland compositors: it watches the data-control selection, stores a
// deduplicated history in SQLite, and answers queries over a Unix
// socket.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"wayclipd/pkg/clipboard"
	"wayclipd/pkg/config"
	"wayclipd/pkg/coordinator"
	"wayclipd/pkg/errors"
	"wayclipd/pkg/ipc"
	"wayclipd/pkg/logger"
	"wayclipd/pkg/paths"
	"wayclipd/pkg/store"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case clipboard.StageSetup:
			if err := clipboard.RunSetupStage(); err != nil {
				errors.Fatal(errors.ClipboardError("clipboard publish setup failed", err))
			}
			return
		case clipboard.StageServe:
			if len(os.Args) < 3 {
				errors.Fatal(errors.New(errors.ExitCodeClipboard, "missing payload path for clipboard serve stage"))
			}
			if err := clipboard.RunServeStage(os.Args[2]); err != nil {
				errors.Fatal(errors.ClipboardError("clipboard publish serve failed", err))
			}
			return
		}
	}

	logger.SetLevel(os.Getenv("WAYCLIPD_LOG_LEVEL"))
	runDaemon()
}

func runDaemon() {
	logger.Info().Msg("starting wayclipd")

	if err := paths.EnsureDir(paths.SocketDir()); err != nil {
		errors.Fatal(errors.NewWithError(errors.ExitCodeFileOperation, "failed to create runtime directory", err))
	}
	if err := paths.EnsureDir(paths.DatabaseDir()); err != nil {
		errors.Fatal(errors.NewWithError(errors.ExitCodeFileOperation, "failed to create data directory", err))
	}
	if err := paths.EnsureDir(paths.ConfigDir()); err != nil {
		errors.Fatal(errors.NewWithError(errors.ExitCodeFileOperation, "failed to create config directory", err))
	}

	cfg, err := config.Load()
	if err != nil {
		errors.Fatal(err)
	}
	logger.Info().Interface("config", cfg).Msg("loaded configuration")

	db, err := store.Open(paths.DatabasePath())
	if err != nil {
		errors.Fatal(err)
	}
	defer db.Close()
	logger.Info().Msg("database initialized")

	stop := make(chan struct{})
	captures, err := clipboard.Capture(stop)
	if err != nil {
		errors.Fatal(errors.ClipboardError("failed to start clipboard capture", err))
	}

	co := coordinator.New(db, cfg)
	go co.Run(captures)

	server, err := ipc.Listen(paths.SocketPath())
	if err != nil {
		errors.Fatal(errors.NewWithError(errors.ExitCodeGeneral, "failed to start ipc server", err))
	}
	go func() {
		if err := server.Serve(co.Handle); err != nil {
			logger.Error().Err(err).Msg("ipc server stopped")
		}
	}()

	logger.Info().Str("socket", paths.SocketPath()).Msg("daemon started, waiting for events")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("received shutdown signal")
	close(stop)
	server.Close()

	logger.Info().Msg("daemon stopped")
}
