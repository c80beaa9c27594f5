package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/interactions-gateway/internal/domain/interaction"
)

// acceptAll is a verifier stub that approves every signature.
type acceptAll struct{}

func (acceptAll) Verify(timestamp string, body []byte, signatureHex string) (bool, error) {
	return true, nil
}

// rejectAll is a verifier stub that rejects every signature.
type rejectAll struct{}

func (rejectAll) Verify(timestamp string, body []byte, signatureHex string) (bool, error) {
	return false, nil
}

type guardStub struct {
	first bool
	err   error
	calls int
}

func (g *guardStub) FirstSeen(ctx context.Context, interactionID string) (bool, error) {
	g.calls++
	return g.first, g.err
}

type observerStub struct {
	records []Completion
}

func (o *observerStub) DispatchCompleted(ctx context.Context, rec Completion) {
	o.records = append(o.records, rec)
}

func signedEnvelope(body string) Envelope {
	return Envelope{
		Signature: "aa",
		Timestamp: "1756600000",
		Body:      []byte(body),
	}
}

func TestDispatch_MissingHeaders(t *testing.T) {
	d := NewDispatcher(acceptAll{}, NewRegistry(nil), nil)

	res, err := d.Dispatch(context.Background(), Envelope{Body: []byte(`{"type":1}`)})
	require.NoError(t, err)
	assert.Equal(t, 401, res.Status)
	assert.Equal(t, detail{Detail: "missing request signature"}, res.Body)
}

func TestDispatch_InvalidSignature(t *testing.T) {
	d := NewDispatcher(rejectAll{}, NewRegistry(nil), nil)

	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"type":1}`))
	require.NoError(t, err)
	assert.Equal(t, 401, res.Status)
	assert.Equal(t, detail{Detail: "invalid request signature"}, res.Body)
}

func TestDispatch_MalformedBody(t *testing.T) {
	d := NewDispatcher(acceptAll{}, NewRegistry(nil), nil)

	res, err := d.Dispatch(context.Background(), signedEnvelope(`not json`))
	require.NoError(t, err)
	assert.Equal(t, 400, res.Status)
}

func TestDispatch_Ping(t *testing.T) {
	registry := NewRegistry(nil)

	fired := false
	registry.RegisterLifecycleHandler(interaction.EventInteractionReceive, func(ctx context.Context, i *interaction.Interaction) error {
		fired = true
		return nil
	})

	d := NewDispatcher(acceptAll{}, registry, nil)
	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":1}`))
	require.NoError(t, err)

	assert.Equal(t, 200, res.Status)
	resp, ok := res.Body.(*interaction.Response)
	require.True(t, ok)
	assert.Equal(t, interaction.ResponsePong, resp.Type)
	assert.False(t, fired, "ping must not fire lifecycle events")
}

func TestDispatch_RegisteredCommand(t *testing.T) {
	registry := NewRegistry(nil)

	var events []string
	registry.RegisterLifecycleHandler(interaction.EventInteractionReceive, func(ctx context.Context, i *interaction.Interaction) error {
		events = append(events, "interaction_receive")
		return nil
	})
	registry.RegisterLifecycleHandler(interaction.EventCommandReceive, func(ctx context.Context, i *interaction.Interaction) error {
		events = append(events, "command_receive")
		return nil
	})

	var gotOpts []interaction.CommandOption
	registry.RegisterCommand("echo", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		gotOpts = opts
		return interaction.Message("hello world"), nil
	})

	d := NewDispatcher(acceptAll{}, registry, nil)
	body := `{"id":"42","type":2,"data":{"name":"echo","options":[{"name":"a","value":"hello"},{"name":"b","value":"world"}]}}`
	res, err := d.Dispatch(context.Background(), signedEnvelope(body))
	require.NoError(t, err)

	assert.Equal(t, 200, res.Status)
	resp := res.Body.(*interaction.Response)
	assert.Equal(t, "hello world", resp.Data.Content)

	assert.Equal(t, []string{"interaction_receive", "command_receive"}, events)
	require.Len(t, gotOpts, 2)
	assert.Equal(t, "a", gotOpts[0].Name)
	assert.Equal(t, "hello", gotOpts[0].StringValue())
	assert.Equal(t, "b", gotOpts[1].Name)
}

func TestDispatch_UnregisteredRoutes(t *testing.T) {
	registry := NewRegistry(nil)

	fired := false
	registry.RegisterLifecycleHandler(interaction.EventInteractionReceive, func(ctx context.Context, i *interaction.Interaction) error {
		fired = true
		return nil
	})

	d := NewDispatcher(acceptAll{}, registry, nil)

	cases := []struct {
		body string
		want string
	}{
		{`{"id":"1","type":2,"data":{"name":"missing"}}`, "This command is not registered with Interaction Gateway API."},
		{`{"id":"2","type":3,"data":{"custom_id":"missing","component_type":2}}`, "This button is not registered with Interaction Gateway API."},
		{`{"id":"3","type":3,"data":{"custom_id":"missing","component_type":3}}`, "This menu is not registered with Interaction Gateway API."},
	}

	for _, tc := range cases {
		res, err := d.Dispatch(context.Background(), signedEnvelope(tc.body))
		require.NoError(t, err)
		assert.Equal(t, 200, res.Status)

		resp := res.Body.(*interaction.Response)
		assert.Equal(t, interaction.ResponseChannelMessage, resp.Type)
		assert.Equal(t, tc.want, resp.Data.Content)
		assert.Equal(t, interaction.FlagEphemeral, resp.Data.Flags)
	}

	assert.False(t, fired, "unrouted interactions must not fire lifecycle events")
}

func TestDispatch_MenuValues(t *testing.T) {
	registry := NewRegistry(nil)

	var gotValues []string
	registry.RegisterMenu("picker", func(ctx context.Context, i *interaction.Interaction, values []string) (*interaction.Response, error) {
		gotValues = values
		return interaction.Ephemeral("ok"), nil
	})

	d := NewDispatcher(acceptAll{}, registry, nil)
	body := `{"id":"7","type":3,"data":{"custom_id":"picker","component_type":3,"values":["red","green"]}}`
	res, err := d.Dispatch(context.Background(), signedEnvelope(body))
	require.NoError(t, err)

	assert.Equal(t, 200, res.Status)
	assert.Equal(t, []string{"red", "green"}, gotValues)
}

func TestDispatch_UnsupportedType(t *testing.T) {
	d := NewDispatcher(acceptAll{}, NewRegistry(nil), nil)

	for _, typeCode := range []string{"4", "5"} {
		res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":`+typeCode+`}`))
		require.NoError(t, err)
		assert.Equal(t, 200, res.Status)

		resp := res.Body.(*interaction.Response)
		assert.Equal(t, "This interaction is not yet supported by Interaction Gateway API.", resp.Data.Content)
		assert.Equal(t, interaction.FlagEphemeral, resp.Data.Flags)
	}
}

func TestDispatch_UnrecognizedType(t *testing.T) {
	d := NewDispatcher(acceptAll{}, NewRegistry(nil), nil)

	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":99}`))
	require.NoError(t, err)
	assert.Equal(t, 400, res.Status)
	assert.Equal(t, detail{Detail: "Interaction not recognised by Interaction Gateway API."}, res.Body)
}

func TestDispatch_HandlerError(t *testing.T) {
	registry := NewRegistry(nil)
	boom := errors.New("boom")
	registry.RegisterCommand("broken", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		return nil, boom
	})

	d := NewDispatcher(acceptAll{}, registry, nil)
	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":2,"data":{"name":"broken"}}`))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
}

func TestDispatch_LifecycleErrorAbortsHandler(t *testing.T) {
	registry := NewRegistry(nil)
	boom := errors.New("lifecycle down")
	registry.RegisterLifecycleHandler(interaction.EventInteractionReceive, func(ctx context.Context, i *interaction.Interaction) error {
		return boom
	})

	handlerRan := false
	registry.RegisterCommand("ping", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		handlerRan = true
		return interaction.Pong(), nil
	})

	d := NewDispatcher(acceptAll{}, registry, nil)
	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":2,"data":{"name":"ping"}}`))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	assert.False(t, handlerRan)
}

func TestDispatch_ReplayGuardDropsDuplicates(t *testing.T) {
	registry := NewRegistry(nil)

	handlerRan := false
	registry.RegisterCommand("ping", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		handlerRan = true
		return interaction.Pong(), nil
	})

	guard := &guardStub{first: false}
	d := NewDispatcher(acceptAll{}, registry, nil).WithReplayGuard(guard)

	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":2,"data":{"name":"ping"}}`))
	require.NoError(t, err)

	assert.Equal(t, 200, res.Status)
	resp := res.Body.(*interaction.Response)
	assert.Equal(t, "This interaction was already processed.", resp.Data.Content)
	assert.False(t, handlerRan)
	assert.Equal(t, 1, guard.calls)
}

func TestDispatch_ReplayGuardFailsOpen(t *testing.T) {
	registry := NewRegistry(nil)

	handlerRan := false
	registry.RegisterCommand("ping", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		handlerRan = true
		return interaction.Pong(), nil
	})

	guard := &guardStub{err: errors.New("redis down")}
	d := NewDispatcher(acceptAll{}, registry, nil).WithReplayGuard(guard)

	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":2,"data":{"name":"ping"}}`))
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status)
	assert.True(t, handlerRan)
}

func TestDispatch_ObserverReceivesCompletion(t *testing.T) {
	registry := NewRegistry(nil)
	registry.RegisterCommand("ping", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		return interaction.Pong(), nil
	})

	observer := &observerStub{}
	d := NewDispatcher(acceptAll{}, registry, nil).WithObserver(observer)

	_, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"42","type":2,"guild_id":"g1","data":{"name":"ping"}}`))
	require.NoError(t, err)

	require.Len(t, observer.records, 1)
	rec := observer.records[0]
	assert.Equal(t, "42", rec.InteractionID)
	assert.Equal(t, interaction.KindCommand, rec.Kind)
	assert.True(t, rec.Handled)
	assert.Equal(t, 200, rec.Status)
	assert.Equal(t, "ping", rec.CommandName)
	assert.Equal(t, "g1", rec.GuildID)
	assert.NoError(t, rec.Err)
}

func TestDispatch_ConcurrentRequestsAreIsolated(t *testing.T) {
	registry := NewRegistry(nil)

	registry.RegisterCommand("echo", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		if len(opts) != 1 || opts[0].StringValue() != "payload-"+i.ID() {
			return nil, fmt.Errorf("interaction %s received foreign options %v", i.ID(), opts)
		}
		return interaction.Message("echo " + i.ID()), nil
	})

	d := NewDispatcher(acceptAll{}, registry, nil)

	const rounds = 100
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)

	dispatchOne := func(id string) {
		defer wg.Done()
		body := fmt.Sprintf(`{"id":%q,"type":2,"data":{"name":"echo","options":[{"name":"text","value":"payload-%s"}]}}`, id, id)
		res, err := d.Dispatch(context.Background(), signedEnvelope(body))
		if err != nil {
			errs <- err
			return
		}
		resp := res.Body.(*interaction.Response)
		if resp.Data.Content != "echo "+id {
			errs <- fmt.Errorf("interaction %s received response %q", id, resp.Data.Content)
		}
	}

	for n := 0; n < rounds; n++ {
		wg.Add(3)
		go dispatchOne(fmt.Sprintf("a%d", n))
		go dispatchOne(fmt.Sprintf("b%d", n))
		go func(n int) {
			defer wg.Done()
			registry.RegisterButton(fmt.Sprintf("late%d", n), func(ctx context.Context, i *interaction.Interaction) (*interaction.Response, error) {
				return interaction.Ephemeral("ok"), nil
			})
		}(n)
	}
	wg.Wait()

	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	// Handlers registered during the dispatch wave are routable afterwards.
	res, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"z","type":3,"data":{"custom_id":"late0","component_type":2}}`))
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, "ok", res.Body.(*interaction.Response).Data.Content)
}

func TestDispatch_ObserverSeesHandlerFailure(t *testing.T) {
	registry := NewRegistry(nil)
	boom := errors.New("boom")
	registry.RegisterCommand("broken", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		return nil, boom
	})

	observer := &observerStub{}
	d := NewDispatcher(acceptAll{}, registry, nil).WithObserver(observer)

	_, err := d.Dispatch(context.Background(), signedEnvelope(`{"id":"1","type":2,"data":{"name":"broken"}}`))
	require.Error(t, err)

	require.Len(t, observer.records, 1)
	rec := observer.records[0]
	assert.Equal(t, 500, rec.Status)
	assert.ErrorIs(t, rec.Err, boom)
}
