package thermal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis thermal-memory store.
type RedisConfig struct {
	Address  string
	Password string
	Database int

	// Key holds the record as a hash with "percent" and "complement" fields.
	Key string

	Timeout time.Duration
}

// DefaultRedisConfig returns defaults for the given server address.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address: address,
		Key:     "tripunit:thermal-memory",
		Timeout: 2 * time.Second,
	}
}

// RedisStore persists the thermal-memory record in Redis.
type RedisStore struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{cfg: cfg, client: client}, nil
}

// Load returns the stored record. A missing key yields a record that fails
// its complement check.
func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.cfg.Key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("failed to load thermal memory from Redis: %w", err)
	}
	if len(fields) == 0 {
		return Record{}, nil
	}

	pct, err := strconv.ParseUint(fields["percent"], 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("bad percent field: %w", err)
	}
	comp, err := strconv.ParseUint(fields["complement"], 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("bad complement field: %w", err)
	}
	return Record{Percent: uint16(pct), Complement: uint16(comp)}, nil
}

func (s *RedisStore) Save(ctx context.Context, r Record) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.client.HSet(ctx, s.cfg.Key, "percent", r.Percent, "complement", r.Complement).Err(); err != nil {
		return fmt.Errorf("failed to save thermal memory to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
