// Package redis implements the optional replay guard for the interactions
// gateway. The platform may redeliver an interaction when a response is slow
// or lost; the guard records each interaction id with a TTL so redeliveries
// are acknowledged without running handlers a second time. The gateway runs
// without Redis; the guard is wired in only when an address is configured.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration

	// Window is how long an interaction id stays marked as seen. Platform
	// retries arrive within seconds, so minutes of coverage is plenty.
	Window time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Window:       15 * time.Minute,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrGuardConnection is returned when the Redis connection fails.
	ErrGuardConnection = errors.New("replayguard: connection failed")

	// ErrGuardKeyEmpty is returned when an empty interaction id is provided.
	ErrGuardKeyEmpty = errors.New("replayguard: interaction id cannot be empty")
)

// PrefixInteraction is the key prefix for seen interaction ids.
const PrefixInteraction = "interaction:seen:"

// ══════════════════════════════════════════════════════════════════════════════
// REPLAY GUARD
// ══════════════════════════════════════════════════════════════════════════════

// ReplayGuard records interaction ids in Redis with a sliding TTL window.
type ReplayGuard struct {
	client *redis.Client
	config Config
}

// NewReplayGuard connects to Redis and verifies the connection.
func NewReplayGuard(cfg Config) (*ReplayGuard, error) {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGuardConnection, err)
	}

	return &ReplayGuard{client: client, config: cfg}, nil
}

// FirstSeen marks the interaction id as seen and reports whether this was
// the first sighting inside the window. SETNX makes the check-and-mark
// atomic, so concurrent redeliveries agree on a single winner.
func (g *ReplayGuard) FirstSeen(ctx context.Context, interactionID string) (bool, error) {
	if interactionID == "" {
		return false, ErrGuardKeyEmpty
	}

	key := PrefixInteraction + interactionID
	first, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.config.Window).Result()
	if err != nil {
		return false, fmt.Errorf("replayguard: setnx: %w", err)
	}

	return first, nil
}

// Forget removes an interaction id from the window. Used by tests and by
// operators replaying a delivery on purpose.
func (g *ReplayGuard) Forget(ctx context.Context, interactionID string) error {
	if interactionID == "" {
		return ErrGuardKeyEmpty
	}
	return g.client.Del(ctx, PrefixInteraction+interactionID).Err()
}

// Ping checks if Redis is reachable.
func (g *ReplayGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (g *ReplayGuard) Close() error {
	return g.client.Close()
}
