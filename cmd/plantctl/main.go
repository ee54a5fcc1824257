package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"plant-monitor/internal/config"
	"plant-monitor/internal/db"
	"plant-monitor/internal/logging"
	"plant-monitor/internal/migrate"
)

var version = "dev"
var appName = "plantctl"

const usage = `usage: %s <command> [flags]
  migrate [status]  apply pending schema migrations to SQLITE_PATH, or list them
  publish           publish plant metrics to MQTT_TOPIC (see publish -h)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "env file error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "migrate":
		err = runMigrate(cfg, logger, os.Args[2:])
	case "publish":
		err = runPublish(ctx, cfg, logger, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func runMigrate(cfg config.Config, logger *slog.Logger, args []string) error {
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "err", closeErr)
		}
	}()

	if len(args) > 0 && args[0] == "status" {
		migrations, err := migrate.Status(conn)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			state := "pending"
			if m.Applied {
				state = "applied"
			}
			fmt.Printf("%s  %-30s %s\n", m.Version, m.Name, state)
		}
		return nil
	}

	n, err := migrate.Run(conn)
	if err != nil {
		return err
	}
	fmt.Printf("migrations applied: %d\n", n)
	return nil
}
