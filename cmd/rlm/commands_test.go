package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PodJamz/8gent-sub005/config"
	"github.com/PodJamz/8gent-sub005/memory"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	cfg := "user_id: tester\n" +
		"store:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "memory.db") + "\n" +
		"ingestion:\n  use_ai: false\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func runCmd(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_IngestAndQuery(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte(
		"We decided to move the analytics pipeline to Postgres after the load test.\n\n"+
			"The team shipped the new onboarding flow to every customer last week.\n"), 0o600))

	out, err := runCmd(t, configPath, "", "ingest", notes)
	require.NoError(t, err)
	assert.Contains(t, out, "Processed notes.md: extracted 2 memories [heuristic]")
	assert.Contains(t, out, "stored: 2 episodic, 0 semantic")

	out, err = runCmd(t, configPath, "", "stats", "--json")
	require.NoError(t, err)
	var stats memory.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.EpisodicCount)

	out, err = runCmd(t, configPath, "", "context", "analytics", "pipeline")
	require.NoError(t, err)
	assert.Contains(t, out, "Postgres")
}

func TestCLI_IngestStdin(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	out, err := runCmd(t, configPath, "I really prefer short status updates written as bullet lists.",
		"ingest", "--label", "chat", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed chat")

	out, err = runCmd(t, configPath, "", "recent")
	require.NoError(t, err)
	assert.Contains(t, out, "[From chat]")
}

func TestCLI_ForgetUnknownKind(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	_, err := runCmd(t, configPath, "", "forget", "procedural", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown memory kind")

	_, err = runCmd(t, configPath, "", "forget", "episodic", "missing-id")
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestCLI_LogfileAndPrettyAreExclusive(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	_, err := runCmd(t, configPath, "", "--logfile", filepath.Join(dir, "rlm.log"), "--pretty", "stats")
	assert.Error(t, err)
}

func TestCLI_ConfigInit(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nested", "config.yaml")

	out, err := runCmd(t, configPath, "", "--user", "alice", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+configPath)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, config.Defaults().Ingestion.ChunkSize, cfg.Ingestion.ChunkSize)

	_, err = runCmd(t, configPath, "", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCmd(t, configPath, "", "config", "init", "--force")
	assert.NoError(t, err)
}
