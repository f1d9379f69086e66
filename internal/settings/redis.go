package settings

import (
	"fmt"
	"strconv"

	"github.com/go-redis/redis"
)

// RedisOptions configures the Redis backed store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Prepended to every key, e.g. "midimanager:".
}

// Redis stores settings as "true"/"false" strings, for hosts that share preferences between machines.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis dials the server and checks it answers.
func NewRedis(opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return &Redis{client: client, prefix: opts.Prefix}, nil
}

func (r *Redis) key(k string) string { return r.prefix + k }

// GetBool reads the prefixed key. ok is false when the key does not exist.
func (r *Redis) GetBool(key string) (bool, bool, error) {
	raw, err := r.client.Get(r.key(key)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// SetBool writes the prefixed key without expiry.
func (r *Redis) SetBool(key string, value bool) error {
	return r.client.Set(r.key(key), strconv.FormatBool(value), 0).Err()
}

// Remove deletes the prefixed key.
func (r *Redis) Remove(key string) error {
	return r.client.Del(r.key(key)).Err()
}

// Exists reports whether the prefixed key is present.
func (r *Redis) Exists(key string) (bool, error) {
	n, err := r.client.Exists(r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
