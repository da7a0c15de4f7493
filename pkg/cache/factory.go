package cache

import (
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/pkg/config"
	"github.com/smartsite-dev/api/pkg/logging"
)

// New selects a cache backend from configuration: redis when an address
// is configured, in-memory otherwise.
func New(cfg config.RedisConfig) Cache {
	if cfg.Addr != "" {
		c, err := NewRedisCache(cfg.Addr, cfg.Password, cfg.DB)
		if err == nil {
			logging.Logger.Info("Using redis cache", zap.String("addr", cfg.Addr))
			return c
		}
		logging.Logger.Warn("Redis cache unavailable, falling back to memory",
			zap.String("addr", cfg.Addr),
			zap.Error(err))
	}
	return NewMemoryCache()
}
