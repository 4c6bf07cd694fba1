package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/samcharles93/copyconf/internal/api"
	"github.com/samcharles93/copyconf/internal/backend"
	"github.com/samcharles93/copyconf/internal/history"
	"github.com/samcharles93/copyconf/internal/logger"
	"github.com/samcharles93/copyconf/internal/webui"
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the suite, run history and dashboard over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address",
				Value: "127.0.0.1:8080",
			},
			&cli.DurationFlag{
				Name:  "read-timeout",
				Usage: "read header timeout",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:  "token-hash",
				Usage: "bcrypt hash of the bearer token (see hash-token)",
			},
			&cli.FloatFlag{
				Name:  "runs-per-minute",
				Usage: "maximum POST /v1/runs rate (0 disables)",
				Value: 6,
			},
			&cli.BoolFlag{
				Name:  "no-ui",
				Usage: "serve only the /v1 API",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-case timeout for API runs",
				Value: 30 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			s, err := commandSettings(cmd)
			if err != nil {
				return err
			}
			name, err := backend.Normalize(s.Backend)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 2)
			}
			store, err := history.Open(s.HistoryDB)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			defer store.Close()

			var limit rate.Limit
			if rpm := cmd.Float("runs-per-minute"); rpm > 0 {
				limit = rate.Limit(rpm / 60)
			}
			server := api.NewServer(api.Config{
				Backend:     name,
				Store:       store,
				TokenHash:   s.APITokenHash,
				RunRate:     limit,
				RunBurst:    1,
				CaseTimeout: cmd.Duration("timeout"),
				Logger:      log.With("component", "api"),
				Open: func(name string) (memcpy.Runtime, error) {
					return backend.New(name, backend.Options{})
				},
			})
			defer server.Close()

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			if !cmd.Bool("no-ui") {
				webui.Register(e)
			}
			if s.APITokenHash == "" {
				log.Warn("api authentication disabled; set api_token_hash to require a bearer token")
			}
			log.Info("starting server", "address", s.ServerAddress, "backend", name, "history", s.HistoryDB)

			readTimeout := cmd.Duration("read-timeout")
			sc := echo.StartConfig{
				Address: s.ServerAddress,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			if err := sc.Start(ctx, e); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return cli.Exit("error: "+err.Error(), 1)
			}
			return nil
		},
	}
}
