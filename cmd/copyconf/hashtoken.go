package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/copyconf/internal/api"
)

func hashTokenCmd() *cli.Command {
	return &cli.Command{
		Name:      "hash-token",
		Usage:     "Print the bcrypt hash of an API token for api_token_hash",
		ArgsUsage: "[token]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			token := cmd.Args().First()
			if token == "" {
				line, err := bufio.NewReader(stdin(cmd)).ReadString('\n')
				if err != nil && line == "" {
					return cli.Exit("error: no token given on the command line or stdin", 2)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return cli.Exit("error: token is empty", 2)
			}
			hash, err := api.HashToken(token)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			fmt.Fprintln(stdout(cmd), hash)
			return nil
		},
	}
}
