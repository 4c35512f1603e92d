package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// Client is the subset of *redis.Client the repositories need.
type Client interface {
	redis.Cmdable
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

type RedisSessionStore struct {
	rdb Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionStore) messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}

func (r *RedisSessionStore) metaKey(sessionID string) string {
	return fmt.Sprintf("session:%s:meta", sessionID)
}

// Load reads messages and metadata in one MULTI so they always agree.
func (r *RedisSessionStore) Load(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, errx.ErrInvalidSession
	}
	msgKey, metaKey := r.messagesKey(sessionID), r.metaKey(sessionID)

	var (
		rows *redis.StringSliceCmd
		meta *redis.MapStringStringCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		rows = p.LRange(ctx, msgKey, 0, -1)
		meta = p.HGetAll(ctx, metaKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", msgKey).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	sess := &model.Session{ID: sessionID, Messages: []*schema.Message{}}
	for i, s := range rows.Val() {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		sess.Messages = append(sess.Messages, &m)
	}

	fields := meta.Val()
	if v, ok := fields["version"]; ok {
		if sess.Version, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("parse session version: %w", err)
		}
	}
	if v, ok := fields["frustration"]; ok {
		if sess.FrustrationCount, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse frustration count: %w", err)
		}
	}
	return sess, nil
}

// Save replaces the session if its stored version still equals s.Version.
// On success s.Version is advanced.
func (r *RedisSessionStore) Save(ctx context.Context, s *model.Session) error {
	if s == nil || s.ID == "" {
		return errx.ErrInvalidSession
	}
	msgKey, metaKey := r.messagesKey(s.ID), r.metaKey(s.ID)

	payload := make([]any, 0, len(s.Messages))
	for i, m := range s.Messages {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("session_id", s.ID).Int("index", i).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		payload = append(payload, b)
	}

	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, metaKey, "version").Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return errx.WrapRedis(err)
		}
		if cur != s.Version {
			return errx.ErrSessionConflict
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, msgKey)
			if len(payload) > 0 {
				p.RPush(ctx, msgKey, payload...)
			}
			p.HSet(ctx, metaKey, "version", s.Version+1, "frustration", s.FrustrationCount)
			// extend TTL on touch
			if r.ttl > 0 {
				p.Expire(ctx, msgKey, r.ttl)
				p.Expire(ctx, metaKey, r.ttl)
			}
			return nil
		})
		return err
	}

	err := r.rdb.Watch(ctx, txf, msgKey, metaKey)
	switch {
	case err == nil:
		s.Version++
		return nil
	case errors.Is(err, errx.ErrSessionConflict), errors.Is(err, redis.TxFailedErr):
		logx.Debug().Str("session_id", s.ID).Int64("version", s.Version).Msg("session save conflict")
		return errx.ErrSessionConflict
	default:
		logx.Error().Err(err).Str("key", metaKey).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
}

func (r *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, r.messagesKey(sessionID), r.metaKey(sessionID)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionStore = (*RedisSessionStore)(nil)
