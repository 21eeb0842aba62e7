package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "console:session:"
	// Every replica listens here, so a write on one reaches sockets on all.
	redisChangeChannel = "console:session:changes"
	// Marks the hash as existing even before any key is written.
	redisCreatedField = "_created"
)

// RedisStore keeps each session in a hash with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func (r *RedisStore) key(sid string) string {
	return redisKeyPrefix + sid
}

func (r *RedisStore) Create(ctx context.Context) (string, error) {
	sid := uuid.NewString()
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(sid), redisCreatedField, time.Now().Unix())
	pipe.Expire(ctx, r.key(sid), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis create session: %w", err)
	}
	return sid, nil
}

func (r *RedisStore) Exists(ctx context.Context, sid string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(sid)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Get(ctx context.Context, sid string, key Key) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	pipe := r.client.Pipeline()
	exists := pipe.Exists(ctx, r.key(sid))
	get := pipe.HGet(ctx, r.key(sid), string(key))
	pipe.Expire(ctx, r.key(sid), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if exists.Val() == 0 {
		return "", false, ErrNotFound
	}
	v, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, sid string, key Key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.requireSession(ctx, sid); err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(sid), string(key), value)
	pipe.Expire(ctx, r.key(sid), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.publish(ctx, Change{SID: sid, Key: key, Value: value})
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sid string, key Key) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.requireSession(ctx, sid); err != nil {
		return err
	}
	n, err := r.client.HDel(ctx, r.key(sid), string(key)).Result()
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	if n > 0 {
		r.publish(ctx, Change{SID: sid, Key: key, Deleted: true})
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, sid string) error {
	n, err := r.client.Del(ctx, r.key(sid)).Result()
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	if n > 0 {
		r.publish(ctx, Change{SID: sid, Deleted: true})
	}
	return nil
}

func (r *RedisStore) Snapshot(ctx context.Context, sid string) (map[Key]string, error) {
	all, err := r.client.HGetAll(ctx, r.key(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis snapshot: %w", err)
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	out := make(map[Key]string, len(all))
	for k, v := range all {
		if key := Key(k); key.Valid() {
			out[key] = v
		}
	}
	return out, nil
}

func (r *RedisStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	ps := r.client.Subscribe(ctx, redisChangeChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Change, 64)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					r.logger.Warn("dropping malformed session change", "err", err)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisStore) requireSession(ctx context.Context, sid string) error {
	ok, err := r.Exists(ctx, sid)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// publish is best effort; the write itself already succeeded.
func (r *RedisStore) publish(ctx context.Context, c Change) {
	b, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.client.Publish(ctx, redisChangeChannel, b).Err(); err != nil {
		r.logger.Warn("session change publish failed", "session_id", c.SID, "err", err)
	}
}
