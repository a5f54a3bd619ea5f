package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/car-location-go/internal/models"
)

const (
	keyPrefix     = "carloc:latest"
	defaultExpiry = 24 * time.Hour
)

// ErrMiss is returned when the key is absent or caching is disabled
var ErrMiss = errors.New("cache miss")

// setIfNewer replaces each key unless it already holds a record with the same
// or a later timestamp, matching the store's newest-first, first-inserted order.
// ARGV: encoded record, its timestamp, expiry in milliseconds.
var setIfNewer = redis.NewScript(`
local ts = tonumber(ARGV[2])
local written = 0
for _, key in ipairs(KEYS) do
  local cur = redis.call('GET', key)
  if not cur or cjson.decode(cur).timestamp < ts then
    redis.call('SET', key, ARGV[1], 'PX', ARGV[3])
    written = written + 1
  end
end
return written
`)

// LatestCache keeps the newest persisted record, by timestamp, overall and per
// car model in Redis.
// Without a URL, or when Redis is unreachable at startup, every call is a no-op.
type LatestCache struct {
	client  *redis.Client
	enabled bool
	expiry  time.Duration
	logger  logrus.FieldLogger
}

// New sets up the Redis connection if redisURL is provided
func New(redisURL string, logger logrus.FieldLogger) *LatestCache {
	c := &LatestCache{
		expiry: defaultExpiry,
		logger: logger.WithField("component", "cache"),
	}

	if redisURL == "" {
		c.logger.Info("Redis URL not provided, caching disabled")
		return c
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to parse Redis URL, caching disabled")
		return c
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to connect to Redis, caching disabled")
		client.Close()
		return c
	}

	c.client = client
	c.enabled = true
	c.logger.Info("Redis cache initialized successfully")
	return c
}

// Enabled reports whether Redis is in use
func (c *LatestCache) Enabled() bool {
	return c.enabled
}

// Close closes the Redis connection
func (c *LatestCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func key(carModel string) string {
	if carModel == "" {
		return keyPrefix
	}
	return keyPrefix + ":" + carModel
}

// SetLatest stores rec as the latest record overall and for its car model,
// unless a record with the same or a later timestamp is already cached
func (c *LatestCache) SetLatest(ctx context.Context, rec models.LocationRecord) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	keys := []string{key(""), key(rec.CarModel)}
	return setIfNewer.Run(ctx, c.client, keys, data, rec.Timestamp, c.expiry.Milliseconds()).Err()
}

// GetLatest returns the cached latest record for carModel, or overall when carModel is empty
func (c *LatestCache) GetLatest(ctx context.Context, carModel string) (*models.LocationRecord, error) {
	if !c.enabled {
		return nil, ErrMiss
	}

	data, err := c.client.Get(ctx, key(carModel)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var rec models.LocationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
