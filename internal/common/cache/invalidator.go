// internal/common/cache/invalidator.go
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"avalia-integrity/internal/common/logger"
)

// Invalidator signals the external response cache that aggregate reports are
// stale. It is the only write this subsystem performs against Redis: a scan
// plus delete of every key under the report prefix after a correction batch.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type redisInvalidator struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

func NewInvalidator(client *redis.Client, prefix string, log logger.Logger) Invalidator {
	return &redisInvalidator{
		client: client,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "cache-invalidator"}),
	}
}

func (i *redisInvalidator) Invalidate(ctx context.Context) error {
	pattern := i.prefix + "*"
	var deleted int64

	iter := i.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := i.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return fmt.Errorf("delete cached report %s: %w", iter.Val(), err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached reports: %w", err)
	}

	i.logger.Info("invalidated cached reports", map[string]interface{}{
		"pattern": pattern,
		"deleted": deleted,
	})
	return nil
}

// NoOpInvalidator is used when Redis is not configured and in tests.
type NoOpInvalidator struct{}

func (NoOpInvalidator) Invalidate(context.Context) error { return nil }
