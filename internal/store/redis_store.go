package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"healthmate/backend/internal/logger"
)

const defaultRedisPrefix = "healthmate"

// RedisStore keeps single documents in one hash per collection and entry
// lists in a dedicated list per (collection, key), trimmed with LTRIM.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	log    *logger.Logger
}

func NewRedisStore(ctx context.Context, rawURL string, log *logger.Logger) (*RedisStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts, err := goredis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, defaultRedisPrefix, log), nil
}

func NewRedisStoreWithClient(rdb *goredis.Client, prefix string, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, log: log.With("component", "RedisStore")}
}

func (s *RedisStore) hashKey(collection string) string {
	return s.prefix + ":" + collection
}

func (s *RedisStore) listKey(collection, key string) string {
	return s.prefix + ":" + collection + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, collection, key string, dst any) (bool, error) {
	raw, err := s.rdb.HGet(ctx, s.hashKey(collection), key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, persistenceErr("read", collection, key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Error("corrupted document treated as empty", "collection", collection, "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) Put(ctx context.Context, collection, key string, value any) error {
	encoded, err := encodeDocument(value)
	if err != nil {
		return persistenceErr("encode", collection, key, err)
	}
	err = s.rdb.HSet(ctx, s.hashKey(collection), key, encoded).Err()
	return persistenceErr("write", collection, key, err)
}

func (s *RedisStore) All(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	values, err := s.rdb.HGetAll(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return nil, persistenceErr("read", collection, "", err)
	}
	docs := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		docs[key] = json.RawMessage(value)
	}
	return docs, nil
}

func (s *RedisStore) Append(ctx context.Context, collection, key string, entry any, limit int) error {
	encoded, err := encodeDocument(entry)
	if err != nil {
		return persistenceErr("encode", collection, key, err)
	}
	listKey := s.listKey(collection, key)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, listKey, encoded)
		if limit > 0 {
			pipe.LTrim(ctx, listKey, int64(-limit), -1)
		}
		return nil
	})
	return persistenceErr("append", collection, key, err)
}

func (s *RedisStore) Entries(ctx context.Context, collection, key string) ([]json.RawMessage, error) {
	values, err := s.rdb.LRange(ctx, s.listKey(collection, key), 0, -1).Result()
	if err != nil {
		return nil, persistenceErr("read", collection, key, err)
	}
	entries := make([]json.RawMessage, 0, len(values))
	for _, value := range values {
		if !json.Valid([]byte(value)) {
			s.log.Error("corrupted list entry skipped", "collection", collection, "key", key)
			continue
		}
		entries = append(entries, json.RawMessage(value))
	}
	return entries, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
