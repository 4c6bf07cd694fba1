package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/copyconf/internal/backend"
	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List conformance cases",
		ArgsUsage: "[case-pattern ...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "group", Aliases: []string{"g"}, Usage: "only list this group (repeatable)"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
			&cli.BoolFlag{Name: "docs", Usage: "include each case's description"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			filter, err := buildFilter(cmd.StringSlice("group"), cmd.Args().Slice(), true)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}
			cases, err := memcpytest.Select(filter)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}
			w := stdout(cmd)
			if cmd.Bool("json") {
				type entry struct {
					ID        string `json:"id"`
					Group     string `json:"group"`
					Doc       string `json:"doc"`
					Hazardous bool   `json:"hazardous,omitempty"`
				}
				out := make([]entry, len(cases))
				for i, c := range cases {
					out[i] = entry{ID: c.ID(), Group: string(c.Group), Doc: c.Doc, Hazardous: c.Hazardous}
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			for _, c := range cases {
				mark := ""
				if c.Hazardous {
					mark = "hazardous"
				}
				if cmd.Bool("docs") {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID(), mark, c.Doc)
				} else {
					fmt.Fprintf(tw, "%s\t%s\n", c.ID(), mark)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%d case(s)\n", len(cases))
			return nil
		},
	}
}

func backendsCmd() *cli.Command {
	return &cli.Command{
		Name:  "backends",
		Usage: "List runtimes compiled into this binary",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := stdout(cmd)
			for _, name := range backend.Names() {
				state := "not built (rebuild with -tags " + name + ")"
				if backend.Has(name) {
					state = "available"
				}
				if name == backend.Sim {
					state += ", reference model"
				}
				fmt.Fprintf(w, "  %-5s %s\n", name, state)
			}
			return nil
		},
	}
}

func devicesCmd() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "Show how many devices the selected runtime reports",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := commandSettings(cmd)
			if err != nil {
				return err
			}
			rt, err := backend.New(s.Backend, backend.Options{})
			if rt == nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			defer rt.Close()
			if err != nil {
				fmt.Fprintf(stderr(cmd), "warning: %v\n", err)
			}
			n, err := rt.DeviceCount()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %s: %v", rt.Name(), err), 1)
			}
			fmt.Fprintf(stdout(cmd), "%s: %d device(s)\n", rt.Name(), n)
			for i := 0; i < n; i++ {
				status := "ok"
				if err := rt.SetDevice(i); err != nil {
					status = err.Error()
				}
				fmt.Fprintf(stdout(cmd), "  device %d: %s\n", i, status)
			}
			return nil
		},
	}
}
