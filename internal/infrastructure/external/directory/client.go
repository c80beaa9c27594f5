package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hookline/interactions-gateway/pkg/circuitbreaker"
	"github.com/hookline/interactions-gateway/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

const defaultUserAgent = "Interaction Gateway API"

// ClientConfig contains configuration for the Directory Service client.
type ClientConfig struct {
	// Token is the bot token used for authorization.
	Token string

	// APIVersion selects the REST API version.
	APIVersion int

	// BaseURL overrides the computed API base URL. Used in tests.
	BaseURL string

	// UserAgent is sent on every request.
	UserAgent string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting.
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables request logging.
	Debug bool
}

// DefaultClientConfig returns sensible defaults for a bot token.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		Token:             token,
		APIVersion:        10,
		UserAgent:         defaultUserAgent,
		Timeout:           30 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// baseURL returns the effective API base URL.
func (c ClientConfig) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	version := c.APIVersion
	if version <= 0 {
		version = 10
	}
	return fmt.Sprintf("https://discord.com/api/v%d", version)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// ErrInvalidToken is returned when the configured bot token is rejected.
var ErrInvalidToken = errors.New("directory: invalid token provided")

// Client is the Directory Service REST client.
type Client struct {
	config         ClientConfig
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *circuitbreaker.CircuitBreaker
	retrier        *retry.Retrier
}

// NewClient creates a new Directory Service client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	logger := config.Logger
	breaker := circuitbreaker.DirectoryBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	})

	return &Client{
		config:         config,
		baseURL:        config.baseURL(),
		httpClient:     &http.Client{Timeout: config.Timeout},
		logger:         logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: breaker,
		retrier:        retry.DirectoryRetrier(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Me fetches the bot account behind the configured token. A 401 response
// maps to ErrInvalidToken so startup can fail with a clear message.
func (c *Client) Me(ctx context.Context) (*BotUser, error) {
	var user BotUser
	err := c.doRequest(ctx, http.MethodGet, "/users/@me", nil, &user)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get current user: %w", err)
	}

	return &user, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND REGISTRATION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterGlobalCommand upserts one global application command.
func (c *Client) RegisterGlobalCommand(ctx context.Context, applicationID string, cmd CommandDefinition) (*RegisteredCommand, error) {
	path := fmt.Sprintf("/applications/%s/commands", url.PathEscape(applicationID))

	var registered RegisteredCommand
	if err := c.doRequest(ctx, http.MethodPost, path, cmd, &registered); err != nil {
		return nil, fmt.Errorf("register global command %q: %w", cmd.Name, err)
	}

	return &registered, nil
}

// RegisterGuildCommand upserts one application command scoped to a guild.
// Guild commands propagate immediately, which makes them the right choice
// during development.
func (c *Client) RegisterGuildCommand(ctx context.Context, applicationID, guildID string, cmd CommandDefinition) (*RegisteredCommand, error) {
	path := fmt.Sprintf("/applications/%s/guilds/%s/commands",
		url.PathEscape(applicationID), url.PathEscape(guildID))

	var registered RegisteredCommand
	if err := c.doRequest(ctx, http.MethodPost, path, cmd, &registered); err != nil {
		return nil, fmt.Errorf("register guild command %q in %s: %w", cmd.Name, guildID, err)
	}

	return &registered, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, circuit breaking,
// and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}

			err := c.doSingleRequest(ctx, method, path, body, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
				return retry.Retryable(err)
			}

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				if apiErr.StatusCode >= 500 {
					return retry.Retryable(err)
				}
				return retry.Permanent(err)
			}

			// Transport-level failures are worth another attempt.
			return retry.Retryable(err)
		})
	})
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bot "+c.config.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	if c.config.Debug {
		c.logger.Debug("directory api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the Directory Service accepts the configured token.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var user BotUser
	return c.doSingleRequest(ctx, http.MethodGet, "/users/@me", nil, &user) == nil
}

// ClientStatus is a snapshot of the client's protective machinery.
type ClientStatus struct {
	RateLimiter    RateLimiterStatus
	CircuitBreaker circuitbreaker.Counts
	CircuitState   circuitbreaker.State
}

// Status returns the current status of the client.
func (c *Client) Status() ClientStatus {
	return ClientStatus{
		RateLimiter:    c.rateLimiter.Status(),
		CircuitBreaker: c.circuitBreaker.Counts(),
		CircuitState:   c.circuitBreaker.State(),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.circuitBreaker.Reset()
}
