package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache provides caching and short-lived state (OTPs, locks) on Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return &RedisCache{client: client}, nil
}

// Set stores a value in cache with expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete removes a key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// SetNX sets a value only if the key doesn't exist (used for locks)
func (c *RedisCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, key, data, expiration).Result()
}

// GetOrSet retrieves a value from cache, or calls the callback to fetch and
// cache it. The callback is only called on a cache miss.
func GetOrSet[T any](c *RedisCache, ctx context.Context, key string, expiration time.Duration, fn func() (T, error)) (T, error) {
	var result T

	err := c.Get(ctx, key, &result)
	if err == nil {
		return result, nil
	}

	result, err = fn()
	if err != nil {
		return result, err
	}

	// Store in cache (ignore cache set errors)
	_ = c.Set(ctx, key, result, expiration)

	return result, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

const otpTTL = 10 * time.Minute

func otpKey(email string) string {
	return fmt.Sprintf("otp:%s", email)
}

// StoreOTP saves a registration OTP for the email with a bounded lifetime
func (c *RedisCache) StoreOTP(ctx context.Context, email, otp string) error {
	return c.Set(ctx, otpKey(email), otp, otpTTL)
}

// CheckOTP compares the provided OTP against the stored one and consumes it
// on a match
func (c *RedisCache) CheckOTP(ctx context.Context, email, otp string) (bool, error) {
	var stored string
	err := c.Get(ctx, otpKey(email), &stored)
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if stored != otp {
		return false, nil
	}
	_ = c.Delete(ctx, otpKey(email))
	return true, nil
}
