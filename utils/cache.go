package utils

import (
	"context"
	"fmt"
	"time"

	"telecare/config"

	"github.com/go-redis/redis/v8"
)

// LockClient backs the reconciliation leader lock.
var LockClient *redis.Client

// InitLockClient connects the Redis client used for distributed locks.
func InitLockClient() error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisLockDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis (lock): %w", err)
	}
	LockClient = client
	return nil
}

// GetLockClient returns the lock client, connecting on first use.
func GetLockClient() (*redis.Client, error) {
	if LockClient == nil {
		if err := InitLockClient(); err != nil {
			return nil, err
		}
	}
	return LockClient, nil
}
