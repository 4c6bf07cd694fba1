package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/copyconf/internal/backend"
	"github.com/samcharles93/copyconf/internal/history"
	"github.com/samcharles93/copyconf/internal/logger"
	"github.com/samcharles93/copyconf/internal/report"
	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run the conformance suite against a runtime",
		ArgsUsage: "[case-pattern ...]",
		Flags: append(suiteFlags(),
			&cli.StringFlag{
				Name:  "devices",
				Usage: "comma separated device ordinals run concurrently, or \"all\"",
			},
			&cli.BoolFlag{
				Name:  "hazardous",
				Usage: "also run cases that pass out-of-bounds or stale handles to the runtime",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-case timeout (0 disables)",
				Value: 30 * time.Second,
			},
			formatFlag(report.Text),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write the report to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "do not record the run in the history database",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every case result",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			s, err := commandSettings(cmd)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(s.ReportFormat)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}
			output := cmd.String("output")
			if format.Binary() && output == "" {
				return cli.Exit(fmt.Sprintf("error: %s reports are binary; use --output", format), 2)
			}
			filter, err := buildFilter(s.Groups, cmd.Args().Slice(), cmd.Bool("hazardous"))
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}
			name, err := backend.Normalize(s.Backend)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}
			devices, err := resolveDevices(name, cmd.String("devices"), s.Device)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}

			plan := runPlan{
				backend:  name,
				devices:  devices,
				config:   memcpytest.Config{Elements: s.Elements},
				filter:   filter,
				timeout:  cmd.Duration("timeout"),
				verbose:  cmd.Bool("verbose"),
				log:      log,
				progress: stderr(cmd),
			}
			reports, runErr := plan.execute(ctx)

			if !cmd.Bool("no-history") && len(reports) > 0 {
				if err := saveReports(ctx, s.HistoryDB, reports); err != nil {
					log.Warn("could not record run history", "path", s.HistoryDB, "error", err)
				}
			}
			if err := emitReports(cmd, reports, format, output); err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			if runErr != nil {
				return cli.Exit("error: "+runErr.Error(), 1)
			}
			for _, rep := range reports {
				if rep.Failed() {
					return cli.Exit("", 1)
				}
			}
			return nil
		},
	}
}

func buildFilter(groups, patterns []string, hazardous bool) (memcpytest.Filter, error) {
	f := memcpytest.Filter{Patterns: patterns, Hazardous: hazardous}
	for _, g := range groups {
		for _, part := range strings.Split(g, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			group, err := memcpytest.ParseGroup(part)
			if err != nil {
				return f, err
			}
			f.Groups = append(f.Groups, group)
		}
	}
	_, err := memcpytest.Select(f)
	return f, err
}

// resolveDevices parses --devices. "all" asks the runtime how many devices
// it has.
func resolveDevices(name, spec string, fallback int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return []int{fallback}, nil
	}
	if spec == "all" {
		rt, err := backend.New(name, backend.Options{})
		if rt == nil {
			return nil, err
		}
		defer rt.Close()
		n, err := rt.DeviceCount()
		if err != nil {
			return nil, fmt.Errorf("%s device count: %w", rt.Name(), err)
		}
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	var out []int
	seen := map[int]bool{}
	for _, part := range strings.Split(spec, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid device %q", part)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

type runPlan struct {
	backend  string
	devices  []int
	config   memcpytest.Config
	filter   memcpytest.Filter
	timeout  time.Duration
	verbose  bool
	log      logger.Logger
	progress io.Writer
}

// execute runs one Runner per device concurrently. Each device gets its own
// runtime handle; the runner pins its worker to an OS thread.
func (p runPlan) execute(ctx context.Context) ([]*memcpytest.Report, error) {
	reports := make([]*memcpytest.Report, len(p.devices))
	g, ctx := errgroup.WithContext(ctx)
	for i, dev := range p.devices {
		g.Go(func() error {
			rt, err := backend.New(p.backend, backend.Options{})
			if err != nil {
				var fb *backend.FallbackError
				if !errors.As(err, &fb) || rt == nil {
					return err
				}
				p.log.Warn("no usable gpu runtime", "error", err)
			}
			defer rt.Close()

			cfg := p.config
			cfg.Device = dev
			log := p.log.With("runtime", rt.Name(), "device", dev)
			r := &memcpytest.Runner{
				Runtime: rt,
				Config:  cfg,
				Filter:  p.filter,
				Timeout: p.timeout,
				Logger:  log,
				OnResult: func(res memcpytest.Result) {
					switch {
					case res.Outcome == memcpytest.Fail:
						log.Warn("case failed", "case", res.ID, "error", res.Message)
					case p.verbose:
						log.Info("case "+string(res.Outcome), "case", res.ID, "duration", res.Duration)
					}
				},
			}
			rep, err := r.Run(ctx)
			reports[i] = rep
			if err != nil {
				return fmt.Errorf("device %d: %w", dev, err)
			}
			return nil
		})
	}
	err := g.Wait()

	out := reports[:0]
	for _, rep := range reports {
		if rep != nil {
			out = append(out, rep)
		}
	}
	return out, err
}

func saveReports(ctx context.Context, path string, reports []*memcpytest.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	for _, rep := range reports {
		if err := store.Save(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}

// emitReports writes every report. With --output and several devices the
// device ordinal is inserted before the extension.
func emitReports(cmd *cli.Command, reports []*memcpytest.Report, format report.Format, output string) error {
	for _, rep := range reports {
		if output == "" {
			if format.Binary() {
				return fmt.Errorf("%s reports are binary; use --output", format)
			}
			if err := report.Write(stdout(cmd), rep, format); err != nil {
				return err
			}
			continue
		}
		path := output
		if len(reports) > 1 {
			path = deviceOutputPath(output, rep.Device)
		}
		if err := writeReportFile(path, rep, format); err != nil {
			return err
		}
		fmt.Fprintf(stderr(cmd), "wrote %s\n", path)
	}
	return nil
}

func deviceOutputPath(output string, device int) string {
	dot := strings.LastIndex(output, ".")
	if dot <= strings.LastIndex(output, "/") {
		return fmt.Sprintf("%s.dev%d", output, device)
	}
	return fmt.Sprintf("%s.dev%d%s", output[:dot], device, output[dot:])
}

func writeReportFile(path string, rep *memcpytest.Report, format report.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.Write(f, rep, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
