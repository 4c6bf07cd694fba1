package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/copyconf/internal/report"
)

// Config is ~/.config/copyconf/config.yaml. Pointer fields distinguish
// unset from zero.
type Config struct {
	Backend  string   `yaml:"backend"`
	Device   *int     `yaml:"device"`
	Elements *int     `yaml:"elements"`
	Groups   []string `yaml:"groups"`

	HistoryDB    string `yaml:"history_db"`
	ReportFormat string `yaml:"report_format"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
	APITokenHash  string `yaml:"api_token_hash"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "copyconf", "config.yaml")
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "copyconf-history.db"
	}
	return filepath.Join(dir, "copyconf", "history.db")
}

// LoadConfig reads path. A missing file yields a zero Config; a malformed
// one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// settings are the effective values after flags, env and the config file.
type settings struct {
	Backend       string
	Device        int
	Elements      int
	Groups        []string
	HistoryDB     string
	ReportFormat  string
	LogLevel      string
	LogFormat     string
	ServerAddress string
	APITokenHash  string
}

// resolveSettings applies config file values wherever the matching flag
// was not set on the command line or through its environment variable.
func resolveSettings(cmd *cli.Command, cfg Config) settings {
	s := settings{
		Backend:       cmd.String("backend"),
		Device:        cmd.Int("device"),
		Elements:      cmd.Int("elements"),
		Groups:        cmd.StringSlice("group"),
		HistoryDB:     cmd.String("history-db"),
		ReportFormat:  cmd.String("format"),
		LogLevel:      cmd.String("log-level"),
		LogFormat:     cmd.String("log-format"),
		ServerAddress: cmd.String("addr"),
		APITokenHash:  cmd.String("token-hash"),
	}
	if cfg.Backend != "" && !cmd.IsSet("backend") {
		s.Backend = cfg.Backend
	}
	if cfg.Device != nil && !cmd.IsSet("device") {
		s.Device = *cfg.Device
	}
	if cfg.Elements != nil && !cmd.IsSet("elements") {
		s.Elements = *cfg.Elements
	}
	if len(cfg.Groups) > 0 && !cmd.IsSet("group") {
		s.Groups = cfg.Groups
	}
	if cfg.HistoryDB != "" && !cmd.IsSet("history-db") {
		s.HistoryDB = cfg.HistoryDB
	}
	if cfg.ReportFormat != "" && !cmd.IsSet("format") {
		s.ReportFormat = cfg.ReportFormat
	}
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		s.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		s.LogFormat = cfg.LogFormat
	}
	if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
		s.ServerAddress = cfg.ServerAddress
	}
	if cfg.APITokenHash != "" && !cmd.IsSet("token-hash") {
		s.APITokenHash = cfg.APITokenHash
	}
	if s.ReportFormat == "" {
		s.ReportFormat = string(report.Text)
	}
	return s
}

// commandSettings loads the config file again and resolves it against the
// running subcommand's flags.
func commandSettings(cmd *cli.Command) (settings, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return settings{}, cli.Exit("error: "+err.Error(), 2)
	}
	return resolveSettings(cmd, cfg), nil
}
