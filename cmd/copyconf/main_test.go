package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/samcharles93/copyconf/internal/report"
)

type harness struct {
	config string
	db     string
}

func newHarness(t *testing.T, config string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{config: filepath.Join(dir, "config.yaml"), db: filepath.Join(dir, "history.db")}
	if config != "" {
		require.NoError(t, os.WriteFile(h.config, []byte(config), 0o644))
	}
	for _, key := range []string{envBackend, envHistoryDB} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return h
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}
	argv := append([]string{"copyconf", "--config", h.config, "--history-db", h.db, "--log-format", "text"}, args...)
	err := app.Run(context.Background(), argv)
	return out.String(), errOut.String(), err
}

func exitStatus(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	if err != nil {
		return 1
	}
	return 0
}

func TestRunRecordsHistory(t *testing.T) {
	h := newHarness(t, "")
	out, _, err := h.run(t, "", "--backend", "sim", "run", "--elements", "4096", "-g", "round-trip", "--format", "json")
	require.NoError(t, err)
	rep, err := report.Decode(strings.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 5, rep.Totals.Pass)

	out, _, err = h.run(t, "", "history", "list")
	require.NoError(t, err)
	require.Contains(t, out, rep.ID[:8])
	require.Contains(t, out, "sim")

	out, _, err = h.run(t, "", "history", "show", rep.ID[:8])
	require.NoError(t, err)
	require.Contains(t, out, "5 passed, 0 failed, 0 skipped")

	dest := filepath.Join(t.TempDir(), "run.xml")
	_, _, err = h.run(t, "", "export", "--format", "junit", "-o", dest, rep.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Contains(t, string(data), "<testsuites")

	_, _, err = h.run(t, "", "history", "delete", rep.ID)
	require.NoError(t, err)
	_, _, err = h.run(t, "", "history", "show", rep.ID)
	require.Equal(t, 2, exitStatus(err))
}

func TestRunUsesConfigFile(t *testing.T) {
	h := newHarness(t, "backend: sim\nelements: 4096\ngroups: [zero-extent]\nreport_format: yaml\n")
	out, _, err := h.run(t, "", "run", "--no-history")
	require.NoError(t, err)
	require.Contains(t, out, "runtime: sim")
	require.Contains(t, out, "pass: 10")

	out, _, err = h.run(t, "", "history", "list")
	require.NoError(t, err)
	require.Contains(t, out, "no runs recorded")
}

func TestRunFlagBeatsConfig(t *testing.T) {
	h := newHarness(t, "backend: sim\nelements: 4096\ngroups: [zero-extent]\n")
	out, _, err := h.run(t, "", "run", "--no-history", "-g", "same-pointer")
	require.NoError(t, err)
	require.Contains(t, out, "same-pointer/")
	require.NotContains(t, out, "zero-extent/")
}

func TestRunUsageErrors(t *testing.T) {
	h := newHarness(t, "")
	for _, args := range [][]string{
		{"--backend", "opencl", "run"},
		{"--backend", "sim", "run", "-g", "bogus"},
		{"--backend", "sim", "run", "--format", "xlsx"},
		{"--backend", "sim", "run", "--devices", "0,x"},
		{"--backend", "sim", "run", "negative/["},
	} {
		_, _, err := h.run(t, "", args...)
		require.Equal(t, 2, exitStatus(err), args)
	}
}

func TestRunWritesOutputFile(t *testing.T) {
	h := newHarness(t, "")
	dest := filepath.Join(t.TempDir(), "run.xlsx")
	_, errOut, err := h.run(t, "", "--backend", "sim", "run", "--elements", "4096", "--no-history", "-g", "null-size", "-f", "xlsx", "-o", dest)
	require.NoError(t, err)
	require.Contains(t, errOut, "wrote "+dest)
	info, err := os.Stat(dest)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestMalformedConfig(t *testing.T) {
	h := newHarness(t, "elements: [")
	_, _, err := h.run(t, "", "list")
	require.Equal(t, 2, exitStatus(err))
}

func TestList(t *testing.T) {
	h := newHarness(t, "")
	out, _, err := h.run(t, "", "list", "-g", "negative")
	require.NoError(t, err)
	require.Contains(t, out, "negative/MemcpyAsync/null-src")
	require.Contains(t, out, "36 case(s)")

	out, _, err = h.run(t, "", "list", "--docs", "bad-offset")
	require.NoError(t, err)
	require.Contains(t, out, "hazardous")
	require.Contains(t, out, "5 case(s)")
}

func TestBackendsAndVersion(t *testing.T) {
	h := newHarness(t, "")
	out, _, err := h.run(t, "", "backends")
	require.NoError(t, err)
	require.Contains(t, out, "sim   available")

	out, _, err = h.run(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "backends:")
	require.Contains(t, out, "sim")

	out, _, err = h.run(t, "", "--backend", "sim", "devices")
	require.NoError(t, err)
	require.Contains(t, out, "sim: 1 device(s)")
}

func TestHashToken(t *testing.T) {
	h := newHarness(t, "")
	out, _, err := h.run(t, "hunter2\n", "hash-token")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))

	_, _, err = h.run(t, "", "hash-token")
	require.Equal(t, 2, exitStatus(err))
}

func TestResolveDevices(t *testing.T) {
	got, err := resolveDevices("sim", "", 3)
	require.NoError(t, err)
	require.Equal(t, []int{3}, got)

	got, err = resolveDevices("sim", "1, 0,1", 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, got)

	got, err = resolveDevices("sim", "all", 0)
	require.NoError(t, err)
	require.Equal(t, []int{0}, got)

	_, err = resolveDevices("sim", "-1", 0)
	require.Error(t, err)
}

func TestDeviceOutputPath(t *testing.T) {
	require.Equal(t, "out/run.dev1.xml", deviceOutputPath("out/run.xml", 1))
	require.Equal(t, "out.d/run.dev0", deviceOutputPath("out.d/run", 0))
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Config{}, cfg)
}
