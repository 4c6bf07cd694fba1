package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/copyconf/internal/history"
	"github.com/samcharles93/copyconf/internal/report"
)

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded runs",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List recorded runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "maximum rows", Value: 20},
					&cli.StringFlag{Name: "runtime", Usage: "only runs against this runtime"},
					&cli.BoolFlag{Name: "failed", Usage: "only runs with failures"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withStore(cmd, func(store *history.Store) error {
						runs, err := store.List(ctx, history.Query{
							Runtime:    cmd.String("runtime"),
							FailedOnly: cmd.Bool("failed"),
							Limit:      cmd.Int("limit"),
						})
						if err != nil {
							return err
						}
						w := stdout(cmd)
						if len(runs) == 0 {
							fmt.Fprintln(w, "no runs recorded")
							return nil
						}
						tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
						fmt.Fprintln(tw, "ID\tSTARTED\tRUNTIME\tDEVICE\tPASS\tFAIL\tSKIP\tTIME")
						for _, r := range runs {
							fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
								r.ID[:8], r.Started.Local().Format(time.DateTime), r.Runtime, r.Device,
								r.Totals.Pass, r.Totals.Fail, r.Totals.Skip, r.Duration.Round(time.Millisecond))
						}
						return tw.Flush()
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Print a recorded run",
				ArgsUsage: "<run-id>",
				Flags:     []cli.Flag{formatFlag(report.Text)},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					format, err := report.ParseFormat(cmd.String("format"))
					if err != nil {
						return cli.Exit("error: "+err.Error(), 2)
					}
					if format.Binary() {
						return cli.Exit("error: use export for binary formats", 2)
					}
					return withStore(cmd, func(store *history.Store) error {
						rep, err := store.Get(ctx, id)
						if err != nil {
							return err
						}
						return report.Write(stdout(cmd), rep, format)
					})
				},
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a recorded run",
				ArgsUsage: "<run-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					return withStore(cmd, func(store *history.Store) error {
						if err := store.Delete(ctx, id); err != nil {
							return err
						}
						fmt.Fprintf(stdout(cmd), "deleted %s\n", id)
						return nil
					})
				},
			},
		},
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a recorded run in another format",
		ArgsUsage: "<run-id>",
		Flags: []cli.Flag{
			formatFlag(report.JUnit),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "destination file (default derived from the run id)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(cmd.String("format"))
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}
			return withStore(cmd, func(store *history.Store) error {
				rep, err := store.Get(ctx, id)
				if err != nil {
					return err
				}
				path := cmd.String("output")
				if path == "-" {
					return report.Write(stdout(cmd), rep, format)
				}
				if path == "" {
					path = report.Filename(rep, format)
				}
				if err := writeReportFile(path, rep, format); err != nil {
					return err
				}
				fmt.Fprintf(stdout(cmd), "wrote %s\n", path)
				return nil
			})
		},
	}
}

func requireID(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", cli.Exit("error: expected exactly one run id", 2)
	}
	return cmd.Args().First(), nil
}

// withStore opens the history database for the duration of fn and maps
// lookup failures to exit codes.
func withStore(cmd *cli.Command, fn func(*history.Store) error) error {
	s, err := commandSettings(cmd)
	if err != nil {
		return err
	}
	store, err := history.Open(s.HistoryDB)
	if err != nil {
		return cli.Exit("error: "+err.Error(), 1)
	}
	defer store.Close()
	if err := fn(store); err != nil {
		if errors.Is(err, history.ErrNotFound) || errors.Is(err, history.ErrAmbiguous) {
			return cli.Exit("error: "+err.Error(), 2)
		}
		return cli.Exit("error: "+err.Error(), 1)
	}
	return nil
}
