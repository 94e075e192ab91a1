package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// VisitedStore remembers which detail URLs were collected recently so
// repeated runs can skip them. Optional; wired only when a Redis address is
// configured.
type VisitedStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewVisitedStore(addr string, ttl time.Duration) *VisitedStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &VisitedStore{client: rdb, ttl: ttl}
}

func (s *VisitedStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MarkVisited sets a key with a TTL so the URL is skipped until it expires.
func (s *VisitedStore) MarkVisited(ctx context.Context, url string) error {
	key := fmt.Sprintf("visited:%s", url)
	return s.client.Set(ctx, key, "1", s.ttl).Err()
}

// IsRecentlyVisited checks whether the URL was collected within the TTL.
func (s *VisitedStore) IsRecentlyVisited(ctx context.Context, url string) (bool, error) {
	key := fmt.Sprintf("visited:%s", url)
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}
