package rdx

import (
	"log"
	"os"
	"time"

	"tripline/globals"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Init opens the shared Redis connection from REDIS_URL.
func Init() *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	Conn = redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	if err := Conn.Ping(globals.Ctx).Err(); err != nil {
		log.Println("Warning: Redis unreachable:", err)
	}
	return Conn
}

func Get(key string) (string, error) {
	return Conn.Get(globals.Ctx, key).Result()
}

func Set(key, value string) error {
	return Conn.Set(globals.Ctx, key, value, 0).Err()
}

func SetWithExpiry(key, value string, ttl time.Duration) error {
	return Conn.Set(globals.Ctx, key, value, ttl).Err()
}

func Del(key string) error {
	return Conn.Del(globals.Ctx, key).Err()
}
