package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// InitRedis returns a connected Redis client, or nil when addr is empty or
// the server does not answer. Callers fall back to process-local state.
func InitRedis(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without Redis: %v", err)
		_ = rdb.Close()
		return nil
	}

	log.Println("Redis connection established")
	return rdb
}
