// Command migrate применяет и откатывает миграции схемы движка заказов в PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jaikishore143/ecommerce-backennd/internal/app"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

// migrator: операции хранилища, нужные утилите.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationState(ctx context.Context) (postgres.MigrationState, error)
	Close() error
}

type options struct {
	command string
	steps   int
	dsn     string
}

func parseArgs(args []string, lookup app.EnvLookup) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts options
	fs.IntVar(&opts.steps, "steps", 0, "number of migrations (0 = all for up, 1 for down)")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+app.EnvPostgresDSN+")")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.command = "up"
	if fs.NArg() > 0 {
		opts.command = strings.ToLower(fs.Arg(0))
	}
	switch opts.command {
	case "up", "down", "status":
	default:
		return options{}, fmt.Errorf("unknown command %q (use up|down|status)", opts.command)
	}

	opts.dsn = strings.TrimSpace(opts.dsn)
	if opts.dsn == "" {
		if v, ok := lookup(app.EnvPostgresDSN); ok {
			opts.dsn = strings.TrimSpace(v)
		}
	}
	if opts.dsn == "" {
		return options{}, errors.New(app.EnvPostgresDSN + " (or -dsn) is required")
	}
	return opts, nil
}

func run(ctx context.Context, m migrator, opts options, out io.Writer) error {
	switch opts.command {
	case "up":
		if err := m.MigrateUp(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if err := m.MigrateDown(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	}

	state, err := m.MigrationState(ctx)
	if err != nil {
		return fmt.Errorf("migration state: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s ok: version=%d applied=%d pending=%d\n",
		opts.command, state.Version, state.Applied, state.Pending)
	return err
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.LookupEnv)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		fail(err)
	}
	defer store.Close()

	if err := run(ctx, store, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func fail(err error) {
	_, _ = fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
