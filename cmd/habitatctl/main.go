package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"habitat-monitor/internal/app"
	"habitat-monitor/internal/config"
	"habitat-monitor/internal/logging"
	"habitat-monitor/internal/modules/habitat/aggregate"
)

var version = "dev"
var appName = "habitatctl"

const usage = `usage: %s <command> [flags]
  migrate    apply pending schema/seed migrations
  aggregate  recompute today's per-minute averages
  publish    publish one reading over MQTT (-node -temp -hum -water -stable)
  status     print the live dashboard of a running server (-url -animal)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Args[1], os.Args[2:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "migrate":
		return runMigrate(ctx, cfg, out)
	case "aggregate":
		return runAggregate(ctx, cfg, out)
	case "publish":
		return runPublish(ctx, cfg, args, out)
	case "status":
		return runStatus(ctx, args, out)
	default:
		return fmt.Errorf("unknown command (see %s without arguments)", appName)
	}
}

// OpenStore migrates SQLite and ensures the Postgres schema, so opening the
// store is the whole job.
func runMigrate(ctx context.Context, cfg config.Config, out io.Writer) error {
	_, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	closeStore()
	fmt.Fprintln(out, "migrations applied")
	return nil
}

func runAggregate(ctx context.Context, cfg config.Config, out io.Writer) error {
	repo, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	job := aggregate.NewJob(repo, cfg.AggregateInterval, cfg.Location, slog.Default())
	n, err := job.CatchUp(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d minute rows updated\n", n)
	return nil
}
