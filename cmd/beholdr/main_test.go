package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

func TestObserveThenInspect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("index:\n  warmup_seconds: 60\nlogging:\n  level: error\n  console_level: error\n"), 0o644))

	input := filepath.Join(dir, "queries.sql")
	require.NoError(t, os.WriteFile(input, []byte(strings.Join([]string{
		"SELECT name FROM users WHERE id = 1;",
		"SELECT email FROM accounts WHERE uid = 9;",
		"-- skipped",
		"DELETE FROM sessions WHERE expires < NOW();",
	}, "\n")), 0o644))
	out := filepath.Join(dir, "records.ndjson")
	snapshot := filepath.Join(dir, "snapshot.ndjson")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"--config", cfgPath, "observe",
		"--input", input,
		"--destination", "file://" + out,
		"--user", "app",
		"--address", "10.0.0.1",
		"--export", snapshot,
		"--summary",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "2 shapes")

	f, err := os.Open(out)
	require.NoError(t, err)
	var recs []*record.Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		rec, err := record.Parse(sc.Bytes())
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	f.Close()
	require.Len(t, recs, 3)
	assert.Equal(t, "app@10.0.0.1", recs[0].Principal().String())
	assert.Equal(t, record.OpDelete, recs[2].Operation())

	_, err = os.Stat(snapshot)
	require.NoError(t, err)

	stdout.Reset()
	rootCmd.SetArgs([]string{"--config", cfgPath, "inspect", out})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "2 shapes")
	assert.Contains(t, stdout.String(), "COUNT")
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Beholdr v0.1 (dev)\n", stdout.String())
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	wl := filepath.Join(dir, "workload.yaml")
	require.NoError(t, os.WriteFile(wl, []byte("runId: cli\nseed: 3\ntotalOps: 5\n"), 0o644))
	out := filepath.Join(dir, "gen.sql")

	rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "generate", "--workload", wl, "--output", out, "--ops", "12"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimRight(string(data), "\n"), "\n"), 12)
}
