package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"billing-sync/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.UsageCounter = (*UsageCounters)(nil)

// UsageCounters reads per-user elite query counters maintained by the query
// service. A missing key means zero usage this period.
type UsageCounters struct {
	client RedisClient
}

func NewUsageCounters(client RedisClient) *UsageCounters {
	return &UsageCounters{client: client}
}

func (u *UsageCounters) EliteQueriesUsed(ctx context.Context, userID string) (int, error) {
	v, err := u.client.Get(ctx, EliteQueriesKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse usage counter: %w", err)
	}
	return n, nil
}

func EliteQueriesKey(userID string) string {
	return fmt.Sprintf("usage:elite_queries:%s", userID)
}

var _ repository.UsageCounter = NoUsage{}

// NoUsage reports zero usage; used when no usage source is configured.
type NoUsage struct{}

func (NoUsage) EliteQueriesUsed(ctx context.Context, userID string) (int, error) {
	return 0, nil
}
