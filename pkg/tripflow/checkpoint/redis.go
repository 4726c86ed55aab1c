package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints to Redis, keyed per run. Suitable
// when several planner instances share one session pool.
//
// Keys per run:
//
//	{prefix}:{runID}      hash  nodeID -> checkpoint JSON
//	{prefix}:{runID}:meta hash  nodeID -> metadata JSON
//	{prefix}:{runID}:seq  counter for sequence assignment
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// redisMeta mirrors Info for storage in the meta hash.
type redisMeta struct {
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default "tripflow:cp" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires a run's checkpoints after the given duration of
// inactivity. Zero means no expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a checkpoint store backed by the given client.
// The store does not own the client; Close only releases the store's
// reference to it.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "tripflow:cp",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) dataKey(runID string) string { return s.prefix + ":" + runID }
func (s *RedisStore) metaKey(runID string) string { return s.prefix + ":" + runID + ":meta" }
func (s *RedisStore) seqKey(runID string) string  { return s.prefix + ":" + runID + ":seq" }

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, runID, nodeID string, data []byte) error {
	if s.client == nil {
		return ErrStoreClosed
	}

	seq, err := s.client.Incr(ctx, s.seqKey(runID)).Result()
	if err != nil {
		return fmt.Errorf("assign sequence: %w", err)
	}

	meta, err := json.Marshal(redisMeta{
		Sequence:  int(seq),
		Timestamp: time.Now().UTC(),
		Size:      int64(len(data)),
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.dataKey(runID), nodeID, data)
	pipe.HSet(ctx, s.metaKey(runID), nodeID, meta)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.dataKey(runID), s.ttl)
		pipe.Expire(ctx, s.metaKey(runID), s.ttl)
		pipe.Expire(ctx, s.seqKey(runID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, runID, nodeID string) ([]byte, error) {
	if s.client == nil {
		return nil, ErrStoreClosed
	}

	data, err := s.client.HGet(ctx, s.dataKey(runID), nodeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, runID string) ([]Info, error) {
	if s.client == nil {
		return nil, ErrStoreClosed
	}

	raw, err := s.client.HGetAll(ctx, s.metaKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	infos := make([]Info, 0, len(raw))
	for nodeID, encoded := range raw {
		var m redisMeta
		if err := json.Unmarshal([]byte(encoded), &m); err != nil {
			return nil, fmt.Errorf("decode metadata for node %s: %w", nodeID, err)
		}
		infos = append(infos, Info{
			RunID:     runID,
			NodeID:    nodeID,
			Sequence:  m.Sequence,
			Timestamp: m.Timestamp,
			Size:      m.Size,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, runID, nodeID string) error {
	if s.client == nil {
		return ErrStoreClosed
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, s.dataKey(runID), nodeID)
	pipe.HDel(ctx, s.metaKey(runID), nodeID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteRun implements Store.
func (s *RedisStore) DeleteRun(ctx context.Context, runID string) error {
	if s.client == nil {
		return ErrStoreClosed
	}

	if err := s.client.Del(ctx, s.dataKey(runID), s.metaKey(runID), s.seqKey(runID)).Err(); err != nil {
		return fmt.Errorf("delete run checkpoints: %w", err)
	}
	return nil
}

// Close implements Store. The underlying client is shared and left
// open; callers close it themselves.
func (s *RedisStore) Close() error {
	s.client = nil
	return nil
}
