package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	backend "github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "tgforms:"
	redisStateField    = "state"
	redisDataPrefix    = "d:"
)

// RedisStore keeps each conversation in a Redis hash: the state in one field and every
// bag value JSON-encoded in its own "d:<key>" field, so merges are single HSET calls.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption customises a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL sets the expiration refreshed on every write. Zero disables expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRedisPrefix sets the key prefix for sessions.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis store from an existing client. The store owns the client.
func NewRedisStore(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedis creates a client for addr and wraps it in a store.
func DialRedis(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStore(client, opts...)
}

func (s *RedisStore) key(k Key) string {
	return s.prefix + "session:" + k.String()
}

func (s *RedisStore) touch(ctx context.Context, pipe backend.Pipeliner, key string) {
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// GetState returns the stored state or StateIdle.
func (s *RedisStore) GetState(ctx context.Context, key Key) (State, error) {
	val, err := s.client.HGet(ctx, s.key(key), redisStateField).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return StateIdle, nil
		}
		return StateIdle, fmt.Errorf("state: redis get state: %w", err)
	}
	if val == "" {
		return StateIdle, nil
	}
	return State(val), nil
}

// SetState stores the current state.
func (s *RedisStore) SetState(ctx context.Context, key Key, st State) error {
	rk := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, rk, redisStateField, string(st))
		s.touch(ctx, pipe, rk)
		return nil
	})
	if err != nil {
		return fmt.Errorf("state: redis set state: %w", err)
	}
	return nil
}

// GetData decodes every bag field of the session.
func (s *RedisStore) GetData(ctx context.Context, key Key) (map[string]any, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("state: redis get data: %w", err)
	}
	out := make(map[string]any, len(fields))
	for field, raw := range fields {
		name, ok := strings.CutPrefix(field, redisDataPrefix)
		if !ok {
			continue
		}
		v, err := decodeValue([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("state: redis decode %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// SetData replaces the bag while preserving the current state.
func (s *RedisStore) SetData(ctx context.Context, key Key, data map[string]any) error {
	current, err := s.GetState(ctx, key)
	if err != nil {
		return err
	}
	values, err := encodeFields(data)
	if err != nil {
		return err
	}
	rk := s.key(key)
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, rk)
		pipe.HSet(ctx, rk, redisStateField, string(current))
		if len(values) > 0 {
			pipe.HSet(ctx, rk, values)
		}
		s.touch(ctx, pipe, rk)
		return nil
	})
	if err != nil {
		return fmt.Errorf("state: redis set data: %w", err)
	}
	return nil
}

// UpdateData merges values into the bag.
func (s *RedisStore) UpdateData(ctx context.Context, key Key, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	fields, err := encodeFields(values)
	if err != nil {
		return err
	}
	rk := s.key(key)
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, rk, fields)
		s.touch(ctx, pipe, rk)
		return nil
	})
	if err != nil {
		return fmt.Errorf("state: redis update data: %w", err)
	}
	return nil
}

// Reset moves the session back to idle, deleting it unless keepData is set.
func (s *RedisStore) Reset(ctx context.Context, key Key, keepData bool) error {
	rk := s.key(key)
	var err error
	if keepData {
		err = s.client.HDel(ctx, rk, redisStateField).Err()
	} else {
		err = s.client.Del(ctx, rk).Err()
	}
	if err != nil {
		return fmt.Errorf("state: redis reset: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("state: redis ping: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeFields(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("state: encode %q: %w", k, err)
		}
		out[redisDataPrefix+k] = string(raw)
	}
	return out, nil
}

func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeBag(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
