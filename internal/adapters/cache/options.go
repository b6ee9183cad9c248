package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend       string // none, memory or redis
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds the backend named in s.
func New(s Settings) (Cache, error) {
	switch s.Backend {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemory(s.TTL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		return NewRedis(client, s.TTL), nil
	}
	return nil, ErrUnknownBackend
}
