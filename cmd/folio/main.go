// Command folio runs the portfolio tools from a terminal.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/observability"
)

func main() {
	_ = godotenv.Load()
	observability.InitLoggerTo(os.Stderr, false, slog.LevelWarn)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	env := &environment{out: os.Stdout, open: openApp}
	for _, c := range commands(env) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg), nil
}
