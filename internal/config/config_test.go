package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/pkg/schema"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reqbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "@hourly", cfg.Scheduler.PurgeCron)
	assert.Equal(t, handoff.BackendMemory, cfg.Storage.Backend)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
oracle:
  provider: openai
  model: gpt-4o-mini
  timeout: 45s
storage:
  backend: libsql
  path: file:/tmp/reqbot.db
  ttl: 72h
report:
  filter: confidence_score >= 0.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, 45*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 72*time.Hour, cfg.Storage.TTL)
	assert.Equal(t, 0.2, cfg.Oracle.Temperature, "untouched keys keep defaults")
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	f, err := cfg.Filter()
	require.NoError(t, err)
	assert.NotNil(t, f)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "oracle:\n  model: llama3.1\n")
	t.Setenv("REQBOT_ORACLE_MODEL", "mistral")
	t.Setenv("REQBOT_ORACLE_TEMPERATURE", "0.7")
	t.Setenv("REQBOT_STORAGE_MAX_BYTES", "2048")
	t.Setenv("REQBOT_STORAGE_TTL", "90m")
	t.Setenv("REQBOT_REPORT_FILTER_ENGINE", "cel")
	t.Setenv("REQBOT_REPORT_FILTER", `requirement.priority == "High"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Oracle.Model)
	assert.Equal(t, 0.7, cfg.Oracle.Temperature)
	assert.Equal(t, 2048, cfg.Storage.MaxBytes)
	assert.Equal(t, 90*time.Minute, cfg.Storage.TTL)
	assert.Equal(t, "cel", cfg.Report.FilterEngine)

	h := cfg.Handoff()
	assert.Equal(t, 2048, h.MaxBytes)
	assert.Equal(t, "mistral", cfg.OracleTransport().Model)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("REQBOT_REPORT_POOL_SIZE", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "verbose"
	cfg.Storage.Backend = handoff.BackendRedis
	cfg.Report.PoolSize = 0
	cfg.Report.Filter = "confidence_score >="

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "and 3 more")
}

func TestValidate_ScriptedNeedsScript(t *testing.T) {
	cfg := Default()
	cfg.Oracle.Provider = "scripted"
	assert.Error(t, cfg.Validate())

	cfg.Oracle.Script = "replies.yaml"
	assert.NoError(t, cfg.Validate())
}

func TestKeyPaths(t *testing.T) {
	paths := keyPaths(reflect.TypeOf(Config{}), nil)
	assert.Contains(t, paths, []string{"storage", "max_bytes"})
	assert.Contains(t, paths, []string{"scheduler", "purge_cron"})
	for _, p := range paths {
		assert.Len(t, p, 2)
	}
}
