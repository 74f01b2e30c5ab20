package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"bondsim/internal/cli"
	"bondsim/internal/config"
	"bondsim/internal/log"
)

func main() {
	name := path.Base(os.Args[0])
	cli.Completion().Complete(name)

	cli.LoadEnvFile()

	// Logs go to stderr so they never mix with command output.
	lc := log.DefaultConfig()
	lc.Output = os.Stderr
	lc.Component = log.ComponentCLI
	lc.Level = slog.LevelWarn
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
		lc.Level = lvl
	}
	logger := log.New(lc)
	log.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	env := cli.NewEnv(cfg)
	commander := subcommands.NewCommander(flag.CommandLine, name)
	cli.Register(commander, env)

	flag.Parse()
	status := commander.Execute(context.Background())
	if err := env.Close(); err != nil {
		logger.Warn("Failed to close connections", "error", err)
	}
	os.Exit(int(status))
}
