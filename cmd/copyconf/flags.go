package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/copyconf/internal/logger"
	"github.com/samcharles93/copyconf/internal/report"
)

const (
	envBackend   = "COPYCONF_BACKEND"
	envHistoryDB = "COPYCONF_HISTORY_DB"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to config.yaml",
			Value: configPath(),
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "runtime under test (auto, sim, cuda, hip)",
			Value:   "auto",
			Sources: cli.EnvVars(envBackend),
		},
		&cli.StringFlag{
			Name:    "history-db",
			Usage:   "run history database",
			Value:   defaultHistoryPath(),
			Sources: cli.EnvVars(envHistoryDB),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "log format (auto, pretty, json, text)",
			Value: logger.FormatAuto,
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging (shorthand for --log-level=debug)",
		},
	}
}

func suiteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Usage:   "device ordinal",
		},
		&cli.IntFlag{
			Name:    "elements",
			Aliases: []string{"n"},
			Usage:   "float32 elements per buffer",
			Value:   1 << 20,
		},
		&cli.StringSliceFlag{
			Name:    "group",
			Aliases: []string{"g"},
			Usage:   "only run cases in this group (repeatable)",
		},
	}
}

func formatFlag(value report.Format) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "report format (text, json, yaml, junit, csv, xlsx, pb)",
		Value:   string(value),
	}
}

// setup installs the logger configured by flags and the config file.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, cli.Exit("error: "+err.Error(), 2)
	}
	s := resolveSettings(cmd, cfg)

	level, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		return ctx, cli.Exit("error: "+err.Error(), 2)
	}
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	log, err := logger.Open(stderr(cmd), s.LogFormat, level)
	if err != nil {
		return ctx, cli.Exit("error: "+err.Error(), 2)
	}
	return logger.WithContext(ctx, log), nil
}
