package handoff

import (
	"context"
	"time"

	"github.com/rendis/reqbot/pkg/schema"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendLibSQL = "libsql"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Path is the libSQL database URI.
	Path string
	// Addr, Password and DB address the Redis server.
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
	MaxBytes int
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	opts := []Option{WithMaxBytes(cfg.MaxBytes)}
	if cfg.Prefix != "" {
		opts = append(opts, WithPrefix(cfg.Prefix))
	}
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(opts...), nil
	case BackendRedis:
		if cfg.Addr == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, "redis storage needs an address")
		}
		r := NewRedis(cfg.Addr, cfg.Password, cfg.DB, append(opts, WithTTL(cfg.TTL))...)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	case BackendLibSQL:
		if cfg.Path == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, "libsql storage needs a path")
		}
		return NewLibSQL(ctx, cfg.Path, opts...)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown storage backend %q", cfg.Backend)
	}
}
