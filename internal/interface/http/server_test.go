package http

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/interactions-gateway/internal/application/dispatch"
	"github.com/hookline/interactions-gateway/internal/domain/interaction"
	"github.com/hookline/interactions-gateway/internal/infrastructure/security"
)

// testGateway bundles a running httptest server with the signing key that
// matches its verifier.
type testGateway struct {
	server  *httptest.Server
	private ed25519.PrivateKey
}

func newTestGateway(t *testing.T, registry *dispatch.Registry) *testGateway {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	verifier, err := security.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	dispatcher := dispatch.NewDispatcher(verifier, registry, nil)

	s := NewServer(DefaultConfig(), Dependencies{
		Dispatcher: dispatcher,
		BotTag:     "testbot#0001",
		Version:    "test",
	})

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &testGateway{server: ts, private: priv}
}

// post sends a signed interaction request.
func (g *testGateway) post(t *testing.T, body string) *http.Response {
	t.Helper()

	timestamp := "1756600000"
	message := append([]byte(timestamp), []byte(body)...)
	signature := hex.EncodeToString(ed25519.Sign(g.private, message))

	req, err := http.NewRequest(http.MethodPost, g.server.URL+"/interaction", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSignature, signature)
	req.Header.Set(headerTimestamp, timestamp)

	resp, err := g.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestInteractionEndpoint_MissingHeaders(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	resp, err := http.Post(g.server.URL+"/interaction", "application/json", bytes.NewBufferString(`{"type":1}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "missing request signature", body["detail"])
}

func TestInteractionEndpoint_InvalidSignature(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	req, err := http.NewRequest(http.MethodPost, g.server.URL+"/interaction", bytes.NewBufferString(`{"type":1}`))
	require.NoError(t, err)
	req.Header.Set(headerSignature, hex.EncodeToString(make([]byte, ed25519.SignatureSize)))
	req.Header.Set(headerTimestamp, "1756600000")

	resp, err := g.server.Client().Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "invalid request signature", body["detail"])
}

func TestInteractionEndpoint_Ping(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	resp := g.post(t, `{"id":"1","type":1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["type"])
}

func TestInteractionEndpoint_RegisteredCommand(t *testing.T) {
	registry := dispatch.NewRegistry(nil)
	registry.RegisterCommand("greet", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		return interaction.Message("Hello!"), nil
	})

	g := newTestGateway(t, registry)

	resp := g.post(t, `{"id":"1","type":2,"data":{"name":"greet"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(4), body["type"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Hello!", data["content"])
}

func TestInteractionEndpoint_UnregisteredCommand(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	resp := g.post(t, `{"id":"1","type":2,"data":{"name":"ghost"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "This command is not registered with Interaction Gateway API.", data["content"])
	assert.Equal(t, float64(64), data["flags"])
}

func TestInteractionEndpoint_UnrecognizedType(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	resp := g.post(t, `{"id":"1","type":42}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Interaction not recognised by Interaction Gateway API.", body["detail"])
}

func TestInteractionEndpoint_HandlerFailure(t *testing.T) {
	registry := dispatch.NewRegistry(nil)
	registry.RegisterCommand("broken", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		return nil, errors.New("downstream unavailable")
	})

	g := newTestGateway(t, registry)

	resp := g.post(t, `{"id":"1","type":2,"data":{"name":"broken"}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "interaction handler failed", body["detail"])
}

func TestInteractionEndpoint_BodyTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 64

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	verifier, err := security.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	s := NewServer(cfg, Dependencies{
		Dispatcher: dispatch.NewDispatcher(verifier, dispatch.NewRegistry(nil), nil),
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	oversized := bytes.Repeat([]byte("x"), 65)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/interaction", bytes.NewBuffer(oversized))
	require.NoError(t, err)
	req.Header.Set(headerSignature, "aa")
	req.Header.Set(headerTimestamp, "1756600000")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRootEndpoint(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	resp, err := http.Get(g.server.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "This is a Discord Interaction API.", body["message"])
	assert.Equal(t, "testbot#0001", body["bot"])
}

func TestRootEndpoint_UnknownPath(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	resp, err := http.Get(g.server.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLiveEndpoint(t *testing.T) {
	g := newTestGateway(t, dispatch.NewRegistry(nil))

	resp, err := http.Get(g.server.URL + "/live")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "alive", body["status"])
}

type failingChecker struct{}

func (failingChecker) Name() string { return "postgres" }

func (failingChecker) Check(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthEndpoint_DegradedDependency(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	verifier, err := security.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	s := NewServer(DefaultConfig(), Dependencies{
		Dispatcher:     dispatch.NewDispatcher(verifier, dispatch.NewRegistry(nil), nil),
		HealthCheckers: []HealthChecker{failingChecker{}},
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "degraded", body["status"])
}

func TestRateLimiter_Window(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	// A different client gets its own window.
	assert.True(t, rl.Allow("5.6.7.8"))
}
