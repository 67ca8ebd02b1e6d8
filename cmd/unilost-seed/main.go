package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/unilost/unilost/internal/config"
	"github.com/unilost/unilost/internal/db"
	"github.com/unilost/unilost/internal/logging"
	"github.com/unilost/unilost/internal/seed"
	"github.com/unilost/unilost/internal/store"
)

const usage = `Usage: unilost-seed [-config <path>] <command>

Commands:
  demo           add demo accounts, items, chat and thread messages
  relocate       move every item onto the campus coordinate list
  rename-users   rename studentN/adminN accounts to "Student N"/"Admin N"

The database is chosen like the server does: DATABASE_URL selects
PostgreSQL, otherwise SQLITE_PATH is used.
`

func main() {
	fs := flag.NewFlagSet("unilost-seed", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	cmds := map[string]func(context.Context, store.Store) error{
		"demo":         cmdDemo,
		"relocate":     cmdRelocate,
		"rename-users": cmdRenameUsers,
	}
	cmd, ok := cmds[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", fs.Arg(0), usage)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if _, err := logging.Setup(config.LogConfig{Level: cfg.Log.Level}, false); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := db.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	err = cmd(ctx, st)
	st.Close()
	if err != nil {
		slog.Error("command failed", "command", fs.Arg(0), "error", err)
		os.Exit(1)
	}
}

func cmdDemo(ctx context.Context, s store.Store) error {
	res, err := seed.Demo(ctx, s)
	if err != nil {
		return err
	}
	fmt.Printf("Added %d users, %d items, %d chat messages, %d thread messages.\n",
		res.Users, res.Items, res.Chat, res.Threads)
	return nil
}

func cmdRelocate(ctx context.Context, s store.Store) error {
	n, err := seed.Relocate(ctx, s)
	if err != nil {
		return err
	}
	fmt.Printf("Moved %d items onto campus.\n", n)
	return nil
}

func cmdRenameUsers(ctx context.Context, s store.Store) error {
	n, err := seed.RenameUsers(ctx, s)
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %d users.\n", n)
	return nil
}
