package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func sessionStores(t *testing.T) map[string]model.SessionStore {
	_, rdb := newRedis(t)
	return map[string]model.SessionStore{
		"redis":  NewRedisSessionStore(rdb, time.Hour),
		"memory": NewMemorySessionStore(),
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := store.Load(ctx, "s1")
			if err != nil {
				t.Fatalf("load empty: %v", err)
			}
			if sess.Version != 0 || len(sess.Messages) != 0 || sess.FrustrationCount != 0 {
				t.Fatalf("expected empty session, got %+v", sess)
			}

			sess.Messages = append(sess.Messages,
				schema.UserMessage("where is order 3?"),
				schema.AssistantMessage("Order 3 was delivered.", nil),
			)
			sess.FrustrationCount = 1
			if err := store.Save(ctx, sess); err != nil {
				t.Fatalf("save: %v", err)
			}
			if sess.Version != 1 {
				t.Fatalf("expected version 1 after save, got %d", sess.Version)
			}

			got, err := store.Load(ctx, "s1")
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if got.Version != 1 || got.FrustrationCount != 1 || len(got.Messages) != 2 {
				t.Fatalf("unexpected reloaded session: %+v", got)
			}
			if got.Messages[0].Role != schema.User || got.Messages[1].Content != "Order 3 was delivered." {
				t.Fatalf("messages not preserved: %+v", got.Messages)
			}

			if err := store.Delete(ctx, "s1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			got, err = store.Load(ctx, "s1")
			if err != nil {
				t.Fatalf("load after delete: %v", err)
			}
			if got.Version != 0 || len(got.Messages) != 0 {
				t.Fatalf("expected empty session after delete, got %+v", got)
			}
		})
	}
}

func TestSessionStoreDetectsConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			a, _ := store.Load(ctx, "s2")
			b, _ := store.Load(ctx, "s2")

			a.Messages = append(a.Messages, schema.UserMessage("hi"), schema.AssistantMessage("hello", nil))
			if err := store.Save(ctx, a); err != nil {
				t.Fatalf("first save: %v", err)
			}

			b.Messages = append(b.Messages, schema.UserMessage("hey"), schema.AssistantMessage("hi there", nil))
			err := store.Save(ctx, b)
			if !errors.Is(err, errx.ErrSessionConflict) {
				t.Fatalf("expected conflict, got %v", err)
			}

			got, _ := store.Load(ctx, "s2")
			if len(got.Messages) != 2 || got.Messages[0].Content != "hi" {
				t.Fatalf("losing writer must not overwrite: %+v", got.Messages)
			}
		})
	}
}

func TestSessionStoreRejectsEmptyID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(ctx, ""); !errors.Is(err, errx.ErrInvalidSession) {
				t.Fatalf("expected ErrInvalidSession, got %v", err)
			}
			if err := store.Save(ctx, &model.Session{}); !errors.Is(err, errx.ErrInvalidSession) {
				t.Fatalf("expected ErrInvalidSession, got %v", err)
			}
		})
	}
}

func TestRedisSessionStoreSetsTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, rdb := newRedis(t)
	store := NewRedisSessionStore(rdb, 30*time.Minute)

	sess, _ := store.Load(ctx, "ttl")
	sess.Messages = append(sess.Messages, schema.UserMessage("hi"))
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("session:ttl:messages"); ttl != 30*time.Minute {
		t.Fatalf("expected messages TTL 30m, got %v", ttl)
	}
	if ttl := mr.TTL("session:ttl:meta"); ttl != 30*time.Minute {
		t.Fatalf("expected meta TTL 30m, got %v", ttl)
	}

	mr.FastForward(31 * time.Minute)
	got, err := store.Load(ctx, "ttl")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Messages) != 0 || got.Version != 0 {
		t.Fatalf("expected expired session to load empty, got %+v", got)
	}
}

func couponStores(t *testing.T) map[string]model.CouponAssignments {
	_, rdb := newRedis(t)
	return map[string]model.CouponAssignments{
		"redis":  NewRedisCouponAssignments(rdb, time.Hour),
		"memory": NewMemoryCouponAssignments(),
	}
}

func TestCouponAssignmentsFirstWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range couponStores(t) {
		t.Run(name, func(t *testing.T) {
			if cur, err := store.Assigned(ctx, "s"); err != nil || cur != "" {
				t.Fatalf("expected no assignment, got %q, %v", cur, err)
			}

			got, ok, err := store.Assign(ctx, "s", "SUMMER25")
			if err != nil || !ok || got != "SUMMER25" {
				t.Fatalf("first assign: %q %v %v", got, ok, err)
			}
			got, ok, err = store.Assign(ctx, "s", "WELCOME10")
			if err != nil || ok || got != "SUMMER25" {
				t.Fatalf("second assign must keep SUMMER25: %q %v %v", got, ok, err)
			}

			// releasing a code the session does not hold is a no-op
			if err := store.Release(ctx, "s", "WELCOME10"); err != nil {
				t.Fatalf("release other: %v", err)
			}
			if cur, _ := store.Assigned(ctx, "s"); cur != "SUMMER25" {
				t.Fatalf("expected SUMMER25 to survive, got %q", cur)
			}

			if err := store.Release(ctx, "s", "SUMMER25"); err != nil {
				t.Fatalf("release: %v", err)
			}
			if cur, _ := store.Assigned(ctx, "s"); cur != "" {
				t.Fatalf("expected release to clear, got %q", cur)
			}
		})
	}
}

func TestCouponAssignmentsConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range couponStores(t) {
		t.Run(name, func(t *testing.T) {
			codes := []string{"SUMMER25", "WELCOME10", "SUMMER25", "WELCOME10", "SUMMER25", "WELCOME10"}
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				winners int
				seen    = map[string]bool{}
			)
			for _, code := range codes {
				wg.Add(1)
				go func(code string) {
					defer wg.Done()
					got, ok, err := store.Assign(ctx, "race", code)
					if err != nil {
						t.Errorf("assign: %v", err)
						return
					}
					mu.Lock()
					defer mu.Unlock()
					if ok {
						winners++
					}
					seen[got] = true
				}(code)
			}
			wg.Wait()

			if winners != 1 {
				t.Fatalf("expected exactly one winner, got %d", winners)
			}
			if len(seen) != 1 {
				t.Fatalf("all callers must observe the same code, got %v", seen)
			}
		})
	}
}
