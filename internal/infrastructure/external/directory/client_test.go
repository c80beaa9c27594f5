package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL, token string) *Client {
	cfg := DefaultClientConfig(token)
	cfg.BaseURL = serverURL
	return NewClient(cfg)
}

func TestMe_Success(t *testing.T) {
	var gotAuth, gotAgent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")

		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/users/@me", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(BotUser{
			ID:            "app123",
			Username:      "gatewaybot",
			Discriminator: "0001",
		})
	}))
	defer ts.Close()

	client := testClient(ts.URL, "secret-token")
	user, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "app123", user.ID)
	assert.Equal(t, "gatewaybot#0001", user.Tag())
	assert.Equal(t, "Bot secret-token", gotAuth)
	assert.Equal(t, "Interaction Gateway API", gotAgent)
}

func TestMe_InvalidToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"401: Unauthorized","code":0}`))
	}))
	defer ts.Close()

	client := testClient(ts.URL, "bad-token")
	_, err := client.Me(context.Background())
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterGlobalCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/applications/app123/commands", r.URL.Path)

		var def CommandDefinition
		require.NoError(t, json.NewDecoder(r.Body).Decode(&def))
		assert.Equal(t, "ping", def.Name)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(RegisteredCommand{
			ID:            "cmd1",
			ApplicationID: "app123",
			Name:          def.Name,
			Description:   def.Description,
		})
	}))
	defer ts.Close()

	client := testClient(ts.URL, "secret-token")
	registered, err := client.RegisterGlobalCommand(context.Background(), "app123", CommandDefinition{
		Name:        "ping",
		Description: "Check that the gateway is alive.",
	})
	require.NoError(t, err)
	assert.Equal(t, "cmd1", registered.ID)
	assert.Equal(t, "ping", registered.Name)
}

func TestRegisterGuildCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/applications/app123/guilds/guild9/commands", r.URL.Path)
		_ = json.NewEncoder(w).Encode(RegisteredCommand{ID: "cmd2", GuildID: "guild9", Name: "ping"})
	}))
	defer ts.Close()

	client := testClient(ts.URL, "secret-token")
	registered, err := client.RegisterGuildCommand(context.Background(), "app123", "guild9", CommandDefinition{Name: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "guild9", registered.GuildID)
}

func TestClient_RetriesAfterRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"You are being rate limited."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(BotUser{ID: "app123", Username: "gatewaybot"})
	}))
	defer ts.Close()

	client := testClient(ts.URL, "secret-token")
	user, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "app123", user.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_PermanentClientError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid Form Body","code":50035}`))
	}))
	defer ts.Close()

	client := testClient(ts.URL, "secret-token")
	_, err := client.RegisterGlobalCommand(context.Background(), "app123", CommandDefinition{Name: "bad name"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Message, "Invalid Form Body"))

	// A 4xx other than 429 must not be retried.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(BotUser{ID: "app123", Username: "gatewaybot"})
	}))
	defer ts.Close()

	client := testClient(ts.URL, "secret-token")
	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app123", user.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAPIError_FallbackMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer ts.Close()

	client := testClient(ts.URL, "secret-token")
	_, err := client.Me(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusForbidden), apiErr.Message)
}
