package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const markerPrefix = "mindtide:iv"

// RedisMarker is a cross-instance once-per-day guard for interventions.
// Keys are namespaced as "mindtide:iv:{user}:{day}" and expire at the end
// of the day they mark.
type RedisMarker struct {
	client *redis.Client
}

func NewRedisMarker(client *redis.Client) *RedisMarker {
	return &RedisMarker{client: client}
}

// Dial connects to a Redis instance and verifies it answers.
func Dial(ctx context.Context, addr, password string, db int) (*RedisMarker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisMarker(client), nil
}

func markerKey(userID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", markerPrefix, userID, day.Format("2006-01-02"))
}

// MarkInterventionDay claims the user's intervention slot for day. It
// returns true when this caller won the claim and false when another
// instance already holds it.
func (m *RedisMarker) MarkInterventionDay(ctx context.Context, userID string, day time.Time) (bool, error) {
	ttl := time.Until(endOfDay(day))
	if ttl < time.Minute {
		ttl = time.Minute
	}
	ok, err := m.client.SetNX(ctx, markerKey(userID, day), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (m *RedisMarker) Close() error { return m.client.Close() }

func endOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
