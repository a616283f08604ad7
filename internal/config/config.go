// Package config loads ReqBot settings. Priority: REQBOT_* environment
// variables > YAML file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/rendis/reqbot/internal/expressions"
	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/internal/logging"
	"github.com/rendis/reqbot/internal/oracle"
	"github.com/rendis/reqbot/pkg/schema"
)

// EnvPrefix prefixes every environment override, e.g. REQBOT_ORACLE_MODEL.
const EnvPrefix = "REQBOT"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Oracle    OracleConfig    `yaml:"oracle" mapstructure:"oracle"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

type OracleConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"`
	Model       string        `yaml:"model" mapstructure:"model"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Script      string        `yaml:"script" mapstructure:"script"`
}

type StorageConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend"`
	Path     string        `yaml:"path" mapstructure:"path"`
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxBytes int           `yaml:"max_bytes" mapstructure:"max_bytes"`
}

type ReportConfig struct {
	PoolSize     int    `yaml:"pool_size" mapstructure:"pool_size"`
	Filter       string `yaml:"filter" mapstructure:"filter"`
	FilterEngine string `yaml:"filter_engine" mapstructure:"filter_engine"`
}

type SchedulerConfig struct {
	PurgeCron string `yaml:"purge_cron" mapstructure:"purge_cron"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Oracle: OracleConfig{
			Provider:    oracle.ProviderOllama,
			Model:       "llama3.1",
			Temperature: 0.2,
			Timeout:     2 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:  handoff.BackendMemory,
			TTL:      24 * time.Hour,
			MaxBytes: handoff.DefaultMaxBytes,
		},
		Report: ReportConfig{
			PoolSize:     8,
			FilterEngine: expressions.EngineExpr,
		},
		Scheduler: SchedulerConfig{PurgeCron: "@hourly"},
	}
}

// Load layers the YAML file at path (skipped when empty) and the
// environment over the defaults, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv decodes REQBOT_<SECTION>_<KEY> variables onto cfg. Only fields
// with a matching variable are touched.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	overrides := map[string]any{}
	for _, path := range keyPaths(reflect.TypeOf(*cfg), nil) {
		name := EnvPrefix + "_" + strings.ToUpper(strings.Join(path, "_"))
		v, ok := lookup(name)
		if !ok {
			continue
		}
		section, _ := overrides[path[0]].(map[string]any)
		if section == nil {
			section = map[string]any{}
			overrides[path[0]] = section
		}
		section[path[1]] = v
	}
	if len(overrides) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(overrides); err != nil {
		return fmt.Errorf("decode %s_* environment: %w", EnvPrefix, err)
	}
	return nil
}

// keyPaths lists the mapstructure tag paths of every leaf field.
func keyPaths(t reflect.Type, prefix []string) [][]string {
	var out [][]string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		path := append(append([]string{}, prefix...), tag)
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
			out = append(out, keyPaths(f.Type, path)...)
			continue
		}
		out = append(out, path)
	}
	return out
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	r := &schema.ValidationResult{}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		r.AddError("log.level", schema.ErrCodeValidation, fmt.Sprintf("log.level: unknown log level %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		r.AddError("log.format", schema.ErrCodeValidation, fmt.Sprintf("log.format: unknown log format %q", c.Log.Format))
	}
	switch c.Oracle.Provider {
	case oracle.ProviderOllama, oracle.ProviderOpenAI:
		if c.Oracle.Model == "" {
			r.AddError("oracle.model", schema.ErrCodeValidation, "oracle.model: model is required")
		}
	case oracle.ProviderScripted:
		if c.Oracle.Script == "" {
			r.AddError("oracle.script", schema.ErrCodeValidation, "oracle.script: script is required for the scripted provider")
		}
	default:
		r.AddError("oracle.provider", schema.ErrCodeValidation, fmt.Sprintf("oracle.provider: unknown provider %q", c.Oracle.Provider))
	}
	switch c.Storage.Backend {
	case handoff.BackendMemory:
	case handoff.BackendRedis:
		if c.Storage.Addr == "" {
			r.AddError("storage.addr", schema.ErrCodeValidation, "storage.addr: redis address is required")
		}
	case handoff.BackendLibSQL:
		if c.Storage.Path == "" {
			r.AddError("storage.path", schema.ErrCodeValidation, "storage.path: libsql path is required")
		}
	default:
		r.AddError("storage.backend", schema.ErrCodeValidation, fmt.Sprintf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	if c.Storage.TTL < 0 {
		r.AddError("storage.ttl", schema.ErrCodeValidation, "storage.ttl: ttl must not be negative")
	}
	if c.Report.PoolSize <= 0 {
		r.AddError("report.pool_size", schema.ErrCodeValidation, "report.pool_size: pool size must be positive")
	}
	if c.Report.Filter != "" {
		if _, err := expressions.NewFilter(c.Report.FilterEngine, c.Report.Filter); err != nil {
			r.AddError("report.filter", schema.ErrCodeValidation, "report.filter: "+err.Error())
		}
	}
	if c.Storage.TTL > 0 && c.Scheduler.PurgeCron == "" {
		r.AddWarning("scheduler.purge_cron", schema.ErrCodeValidation, "scheduler.purge_cron: storage ttl is set but no purge schedule")
	}
	return r.ToError()
}

// OracleTransport converts the oracle section for oracle.New.
func (c Config) OracleTransport() oracle.Config {
	return oracle.Config{
		Provider:    c.Oracle.Provider,
		Model:       c.Oracle.Model,
		BaseURL:     c.Oracle.BaseURL,
		APIKey:      c.Oracle.APIKey,
		Temperature: c.Oracle.Temperature,
		Timeout:     c.Oracle.Timeout,
		Script:      c.Oracle.Script,
	}
}

// Handoff converts the storage section for handoff.Open.
func (c Config) Handoff() handoff.Config {
	return handoff.Config{
		Backend:  c.Storage.Backend,
		Path:     c.Storage.Path,
		Addr:     c.Storage.Addr,
		Password: c.Storage.Password,
		DB:       c.Storage.DB,
		Prefix:   c.Storage.Prefix,
		TTL:      c.Storage.TTL,
		MaxBytes: c.Storage.MaxBytes,
	}
}

// Logging converts the log section for logging.New.
func (c Config) Logging() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// Filter compiles the configured requirement filter; nil when unset.
func (c Config) Filter() (*expressions.Filter, error) {
	if c.Report.Filter == "" {
		return nil, nil
	}
	return expressions.NewFilter(c.Report.FilterEngine, c.Report.Filter)
}

// IsNotExist reports whether err came from a missing config file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
