package repository

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

// redisAddr returns the Redis address for integration tests and skips the
// test when the server is unreachable. Set REDIS_ADDR to override
// localhost:6379.
func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ping := redis.NewClient(&redis.Options{Addr: addr})
	defer ping.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ping.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	return addr
}

// newTestRedisStore builds a store under a unique key prefix and removes
// its keys when the test ends.
func newTestRedisStore(t *testing.T, addr string, hooks ...redis.Hook) *RedisStore {
	t.Helper()
	prefix := "courtmatch-test:" + uuid.NewString() + ":"
	client := redis.NewClient(&redis.Options{Addr: addr})
	for _, h := range hooks {
		client.AddHook(h)
	}
	s, err := NewRedisStore(context.Background(), client, WithClock(fixedClock), WithKeyPrefix(prefix))
	if err != nil {
		t.Fatalf("redis store: %v", err)
	}
	t.Cleanup(func() {
		c := redis.NewClient(&redis.Options{Addr: addr})
		defer c.Close()
		keys, err := c.Keys(context.Background(), prefix+"*").Result()
		if err == nil && len(keys) > 0 {
			c.Del(context.Background(), keys...)
		}
	})
	return s
}

// TestRedisStore runs the store contract against a real Redis.
func TestRedisStore(t *testing.T) {
	addr := redisAddr(t)
	runStoreContract(t, "redis", func(t *testing.T) Store {
		return newTestRedisStore(t, addr)
	})
}

var errPipelineDown = errors.New("pipeline down")

// pipelineBreaker fails every pipeline and transaction while broken is set.
type pipelineBreaker struct {
	broken atomic.Bool
}

func (h *pipelineBreaker) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *pipelineBreaker) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *pipelineBreaker) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if h.broken.Load() {
			return errPipelineDown
		}
		return next(ctx, cmds)
	}
}

func TestRedisStore_CreateUserReleasesUsername(t *testing.T) {
	addr := redisAddr(t)

	Convey("Given a redis store whose transactions fail", t, func() {
		ctx := context.Background()
		breaker := &pipelineBreaker{}
		s := newTestRedisStore(t, addr, breaker)
		Reset(func() { _ = s.Close() })
		breaker.broken.Store(true)

		Convey("When registering a user", func() {
			_, err := s.CreateUser(ctx, "carol")

			Convey("Then the write error should surface without a conflict", func() {
				So(errors.Is(err, errPipelineDown), ShouldBeTrue)
				So(errors.Is(err, ErrConflict), ShouldBeFalse)
			})

			Convey("Then the username should be free once Redis recovers", func() {
				breaker.broken.Store(false)

				u, err := s.CreateUser(ctx, "carol")
				So(err, ShouldBeNil)
				So(u.Username, ShouldEqual, "carol")

				_, err = s.User(ctx, u.ID-1)
				So(errors.Is(err, ErrUserNotFound), ShouldBeTrue)

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}
