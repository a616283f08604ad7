package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rendis/reqbot/internal/assistant/assistanttest"
)

// writeTestConfig points the CLI at a scripted oracle and a libSQL file so
// state survives across command invocations.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	script, err := yaml.Marshal(assistanttest.Replies())
	require.NoError(t, err)
	scriptPath := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(scriptPath, script, 0o644))

	cfg := map[string]any{
		"log":     map[string]any{"level": "error"},
		"oracle":  map[string]any{"provider": "scripted", "script": scriptPath},
		"storage": map[string]any{"backend": "libsql", "path": filepath.Join(dir, "sessions.db")},
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	cfgPath := filepath.Join(dir, "reqbot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, data, 0o644))
	return cfgPath
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "mcp", "chat", "extract", "report", "render", "sessions", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	sub := map[string]bool{}
	for _, c := range sessionsCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"list": true, "show": true, "delete": true, "purge": true}, sub)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "reqbot version dev\n", out)
}

func TestSessionWorkflow(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCLI(t, "", "--config", cfg, "sessions", "list")
	require.NoError(t, err)
	assert.Equal(t, "No sessions found.\n", out)

	out, err = runCLI(t, "I need a booking system\n/quit\n", "--config", cfg, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "AI: Who will use the system?")

	out, err = runCLI(t, "", "--config", cfg, "sessions", "list")
	require.NoError(t, err)
	ids := strings.Fields(out)
	require.Len(t, ids, 1)
	id := ids[0]

	out, err = runCLI(t, "", "--config", cfg, "extract", id)
	require.NoError(t, err)
	assert.Contains(t, out, "| FR-1 | Patients book appointments online | High | 0.90 |")

	out, err = runCLI(t, "", "--config", cfg, "report", id)
	require.NoError(t, err)
	assert.Contains(t, out, "## Executive Summary")
	assert.Contains(t, out, "```mermaid\nflowchart TD\n")
	assert.Contains(t, out, "HL7 FHIR")

	out, err = runCLI(t, "", "--config", cfg, "sessions", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Messages: 2")
	assert.Contains(t, out, "User: I need a booking system")

	out, err = runCLI(t, "", "--config", cfg, "sessions", "delete", id)
	require.NoError(t, err)
	assert.Equal(t, "Removed session "+id+"\n", out)

	_, err = runCLI(t, "", "--config", cfg, "sessions", "delete", id)
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle:\n  provider: carrier-pigeon\n"), 0o644))

	_, err := runCLI(t, "", "--config", path, "sessions", "list")
	assert.ErrorContains(t, err, "oracle.provider")
}
