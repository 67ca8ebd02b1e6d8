package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unilost/unilost/internal/api"
	"github.com/unilost/unilost/internal/auth"
	"github.com/unilost/unilost/internal/config"
	"github.com/unilost/unilost/internal/db"
	"github.com/unilost/unilost/internal/logging"
	"github.com/unilost/unilost/internal/realtime"
	"github.com/unilost/unilost/web"
)

func main() {
	fs := flag.NewFlagSet("unilost", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: unilost [flags]

Settings come from the environment (and .env when present). A YAML file
given with -config is read first and overridden by the environment.

Flags:
  -c, -config <path>      YAML config file (default: none)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a rotated log file.
	closeLog, err := logging.Setup(cfg.Log, cfg.App.Production())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	st, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	backend := "sqlite"
	if cfg.Database.UsePostgres() {
		backend = "postgres"
	}
	slog.Info("database ready", "backend", backend)

	if n, err := db.EnsureDefaultUsers(ctx, st); err != nil {
		return fmt.Errorf("creating default users: %w", err)
	} else if n > 0 {
		slog.Info("default users created", "count", n)
	}

	sessions := auth.NewSessions(cfg.Session.Secret, cfg.Session.Dir, cfg.Session.MaxAge)
	hub := realtime.NewHub()
	rt := realtime.NewServer(hub, st, realtime.Options{
		Rate:       cfg.Realtime.Rate,
		Burst:      cfg.Realtime.Burst,
		SendBuffer: cfg.Realtime.SendBuffer,
	})

	router := api.NewRouter(api.Deps{
		Store:      st,
		Sessions:   sessions,
		Realtime:   rt,
		Static:     web.Handler(cfg.App.StaticDir),
		Production: cfg.App.Production(),
		LoginRate:  cfg.Server.LoginRatePerMinute,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not tracked by Shutdown.
		hub.CloseAll()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", server.Addr, "env", cfg.App.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", server.Addr, err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
