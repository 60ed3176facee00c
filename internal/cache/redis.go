package cache

import (
	"github.com/gofiber/storage/redis/v3"
)

// NewRedisStore connects the shared store to Redis.
func NewRedisStore(url string) *redis.Storage {
	return redis.New(redis.Config{
		URL:   url,
		Reset: false,
	})
}
