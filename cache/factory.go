package cache

import (
	"fmt"
	"log"

	"github.com/retrato-app/retrato/cache/memory"
	"github.com/retrato-app/retrato/cache/redis"
	"github.com/retrato-app/retrato/config"
)

// NewProvider 根据配置创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "", "memory":
		memProvider, err := memory.NewMemory(memory.Config{
			NumCounters: 1000000,
			MaxCost:     256 << 20, // 256MB
			BufferItems: 64,
			Metrics:     false,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		log.Println("Successfully initialized 'memory' cache provider")
		return memProvider, nil

	case "redis":
		redisProvider, err := redis.NewRedis(cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		log.Println("Successfully initialized 'redis' cache provider")
		return redisProvider, nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
