package store

import (
	"encoding/json"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
)

// KeyPrefix is prepended to the keys of results stored in redis.
const KeyPrefix = "annotate:"

// RedisStore keeps results in redis as JSON values that expire after their TTL.
type RedisStore struct {
	pool *redis.Pool
}

// NewRedisPool creates a pool of connections to the redis server at address.
func NewRedisPool(address string, maxConnections int) *redis.Pool {
	return redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", address)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, maxConnections)
}

// NewRedisStore returns a store backed by pool. The store owns the pool.
func NewRedisStore(pool *redis.Pool) *RedisStore {
	return &RedisStore{pool: pool}
}

// Ping checks that the server is reachable.
func (s *RedisStore) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return errors.Wrap(err, "cannot reach redis")
}

func (s *RedisStore) Put(key string, r Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	serialized, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "cannot serialize the result")
	}

	conn := s.pool.Get()
	defer conn.Close()

	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if _, err := conn.Do("SETEX", KeyPrefix+key, seconds, serialized); err != nil {
		return errors.Wrapf(err, "cannot store result %q", key)
	}
	return nil
}

func (s *RedisStore) Get(key string) (Result, bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", KeyPrefix+key))
	if err == redis.ErrNil {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, errors.Wrapf(err, "cannot get result %q", key)
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, false, errors.Wrapf(err, "cannot unmarshal result %q", key)
	}
	return r, true, nil
}

func (s *RedisStore) Close() error {
	return s.pool.Close()
}
