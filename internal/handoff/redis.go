package handoff

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Redis stores each session as a JSON string under prefix+id and tracks
// live IDs in a sorted set scored by last update.
type Redis struct {
	client   *backend.Client
	prefix   string
	ttl      time.Duration
	maxBytes int
}

// NewRedis connects to a Redis server.
func NewRedis(address, password string, db int, opts ...Option) *Redis {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(rdb, opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{
		client:   client,
		prefix:   o.prefix,
		ttl:      o.ttl,
		maxBytes: o.maxBytes,
	}
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) indexKey() string {
	return r.prefix + "index"
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return storageError("ping redis", err)
	}
	return nil
}

func (r *Redis) Save(ctx context.Context, s *Session) error {
	data, err := encode(s, r.maxBytes)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	// A zero TTL means no expiry.
	pipe.Set(ctx, r.key(s.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{
		Score:  float64(s.UpdatedAt.Unix()),
		Member: s.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return storageError("save to redis", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, notFound(id)
		}
		return nil, storageError("get from redis", err)
	}
	return decode(val)
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	pipe := r.client.Pipeline()
	del := pipe.Del(ctx, r.key(id))
	pipe.ZRem(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return storageError("delete from redis", err)
	}
	if del.Val() == 0 {
		return notFound(id)
	}
	return nil
}

// List drops index entries whose keys have expired before reading it.
func (r *Redis) List(ctx context.Context) ([]string, error) {
	if r.ttl > 0 {
		cutoff := strconv.FormatInt(time.Now().Add(-r.ttl).Unix(), 10)
		if err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", "("+cutoff).Err(); err != nil {
			return nil, storageError("clean redis index", err)
		}
	}
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, storageError("list redis index", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Redis) Purge(ctx context.Context, before time.Time) (int, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.indexKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, storageError("scan redis index", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	members := make([]any, len(ids))
	for i, id := range ids {
		pipe.Del(ctx, r.key(id))
		members[i] = id
	}
	pipe.ZRem(ctx, r.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, storageError("purge redis", err)
	}
	return len(ids), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
