package config

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns nil when REDIS_ADDRESS is unset; rate limiting and the
// cross-instance relay are then disabled.
func ConnectRedis(cfg *Config) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		log.Info("REDIS_ADDRESS not set, Redis features disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	log.WithField("addr", cfg.RedisAddress).Info("Connected to Redis")
	return client, nil
}
