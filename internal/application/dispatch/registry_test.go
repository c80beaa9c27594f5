package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hookline/interactions-gateway/internal/domain/interaction"
)

func okCommand(string) CommandHandler {
	return func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		return interaction.Pong(), nil
	}
}

func TestRegistry_LookupMiss(t *testing.T) {
	r := NewRegistry(nil)

	_, ok := r.Command("ping")
	assert.False(t, ok)
	_, ok = r.Button("confirm")
	assert.False(t, ok)
	_, ok = r.Menu("picker")
	assert.False(t, ok)
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry(nil)

	var called string
	r.RegisterCommand("ping", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		called = "first"
		return nil, nil
	})
	r.RegisterCommand("ping", func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		called = "second"
		return nil, nil
	})

	h, ok := r.Command("ping")
	assert.True(t, ok)
	_, _ = h(context.Background(), nil, nil)
	assert.Equal(t, "second", called)
}

func TestRegistry_SeparateNamespaces(t *testing.T) {
	r := NewRegistry(nil)

	r.RegisterCommand("shared", okCommand("shared"))
	r.RegisterButton("shared", func(ctx context.Context, i *interaction.Interaction) (*interaction.Response, error) {
		return nil, nil
	})
	r.RegisterMenu("shared", func(ctx context.Context, i *interaction.Interaction, values []string) (*interaction.Response, error) {
		return nil, nil
	})

	_, ok := r.Command("shared")
	assert.True(t, ok)
	_, ok = r.Button("shared")
	assert.True(t, ok)
	_, ok = r.Menu("shared")
	assert.True(t, ok)
}

func TestRegistry_LifecycleOrder(t *testing.T) {
	r := NewRegistry(nil)

	var order []int
	for n := 1; n <= 3; n++ {
		n := n
		r.RegisterLifecycleHandler(interaction.EventStartup, func(ctx context.Context, i *interaction.Interaction) error {
			order = append(order, n)
			return nil
		})
	}

	err := r.FireLifecycle(context.Background(), interaction.EventStartup, nil)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRegistry_LifecycleStopsOnError(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("boom")

	var ran []string
	r.RegisterLifecycleHandler(interaction.EventInteractionReceive, func(ctx context.Context, i *interaction.Interaction) error {
		ran = append(ran, "first")
		return boom
	})
	r.RegisterLifecycleHandler(interaction.EventInteractionReceive, func(ctx context.Context, i *interaction.Interaction) error {
		ran = append(ran, "second")
		return nil
	})

	err := r.FireLifecycle(context.Background(), interaction.EventInteractionReceive, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, ran)
}

func TestRegistry_FireLifecycleWithoutHandlers(t *testing.T) {
	r := NewRegistry(nil)
	assert.NoError(t, r.FireLifecycle(context.Background(), interaction.EventStartup, nil))
	assert.Nil(t, r.LifecycleHandlers(interaction.EventStartup))
}
