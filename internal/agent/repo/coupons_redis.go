package repo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// RedisCouponAssignments keeps one coupon code per session under a SETNX key.
type RedisCouponAssignments struct {
	rdb Client
	ttl time.Duration
}

func NewRedisCouponAssignments(rdb Client, ttl time.Duration) *RedisCouponAssignments {
	return &RedisCouponAssignments{rdb: rdb, ttl: ttl}
}

func (r *RedisCouponAssignments) key(sessionID string) string {
	return fmt.Sprintf("session:%s:coupon", sessionID)
}

func (r *RedisCouponAssignments) Assign(ctx context.Context, sessionID, code string) (string, bool, error) {
	key := r.key(sessionID)
	// the key may expire between SETNX and GET, so retry a couple of times
	for attempt := 0; attempt < 3; attempt++ {
		ok, err := r.rdb.SetNX(ctx, key, code, r.ttl).Result()
		if err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to assign coupon")
			return "", false, errx.WrapRedis(err)
		}
		if ok {
			return code, true, nil
		}
		cur, err := r.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, errx.WrapRedis(err)
		}
		return cur, false, nil
	}
	return "", false, errx.New(nil, http.StatusConflict, "coupon assignment kept changing")
}

func (r *RedisCouponAssignments) Assigned(ctx context.Context, sessionID string) (string, error) {
	cur, err := r.rdb.Get(ctx, r.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errx.WrapRedis(err)
	}
	return cur, nil
}

func (r *RedisCouponAssignments) Release(ctx context.Context, sessionID, code string) error {
	key := r.key(sessionID)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if cur != code {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// someone replaced the assignment meanwhile; theirs wins
		return nil
	}
	return errx.WrapRedis(err)
}

var _ model.CouponAssignments = (*RedisCouponAssignments)(nil)
