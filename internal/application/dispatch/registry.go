package dispatch

import (
	"context"
	"sync"

	"github.com/hookline/interactions-gateway/internal/domain/interaction"
	"github.com/hookline/interactions-gateway/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// Handler signatures
// ═══════════════════════════════════════════════════════════════════════════

// CommandHandler handles an application command. Options are passed in the
// order the platform delivered them.
type CommandHandler func(ctx context.Context, i *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error)

// ButtonHandler handles a button click.
type ButtonHandler func(ctx context.Context, i *interaction.Interaction) (*interaction.Response, error)

// MenuHandler handles a select-menu submission. Values are passed in the
// order the platform delivered them.
type MenuHandler func(ctx context.Context, i *interaction.Interaction, values []string) (*interaction.Response, error)

// LifecycleHandler observes a lifecycle event. For the startup event the
// interaction is nil. A non-nil error aborts the request being dispatched.
type LifecycleHandler func(ctx context.Context, i *interaction.Interaction) error

// ═══════════════════════════════════════════════════════════════════════════
// Registry
// ═══════════════════════════════════════════════════════════════════════════

// Registry holds the routing tables for commands, buttons and select menus,
// plus the lifecycle handler lists. Commands, buttons and menus live in
// separate namespaces, so a button and a menu may share a custom id.
// Registration and lookup are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]CommandHandler
	buttons   map[string]ButtonHandler
	menus     map[string]MenuHandler
	lifecycle map[interaction.EventType][]LifecycleHandler

	log *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		commands:  make(map[string]CommandHandler),
		buttons:   make(map[string]ButtonHandler),
		menus:     make(map[string]MenuHandler),
		lifecycle: make(map[interaction.EventType][]LifecycleHandler),
		log:       log.With(logger.Component("registry")),
	}
}

// RegisterCommand binds a handler to a command name. Registering the same
// name again replaces the previous handler.
func (r *Registry) RegisterCommand(name string, h CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; ok {
		r.log.Warn("command handler replaced", logger.CommandName(name))
	}
	r.commands[name] = h
}

// RegisterButton binds a handler to a button custom id. Registering the same
// id again replaces the previous handler.
func (r *Registry) RegisterButton(customID string, h ButtonHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buttons[customID]; ok {
		r.log.Warn("button handler replaced", logger.CustomID(customID))
	}
	r.buttons[customID] = h
}

// RegisterMenu binds a handler to a select-menu custom id. Registering the
// same id again replaces the previous handler.
func (r *Registry) RegisterMenu(customID string, h MenuHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.menus[customID]; ok {
		r.log.Warn("menu handler replaced", logger.CustomID(customID))
	}
	r.menus[customID] = h
}

// RegisterLifecycleHandler appends a handler to an event's list. Handlers
// fire in registration order.
func (r *Registry) RegisterLifecycleHandler(event interaction.EventType, h LifecycleHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycle[event] = append(r.lifecycle[event], h)
}

// Command returns the handler registered for a command name.
func (r *Registry) Command(name string) (CommandHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[name]
	return h, ok
}

// Button returns the handler registered for a button custom id.
func (r *Registry) Button(customID string) (ButtonHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.buttons[customID]
	return h, ok
}

// Menu returns the handler registered for a select-menu custom id.
func (r *Registry) Menu(customID string) (MenuHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.menus[customID]
	return h, ok
}

// LifecycleHandlers returns the handlers for an event in registration order.
// The returned slice is a copy.
func (r *Registry) LifecycleHandlers(event interaction.EventType) []LifecycleHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.lifecycle[event]
	if len(hs) == 0 {
		return nil
	}
	out := make([]LifecycleHandler, len(hs))
	copy(out, hs)
	return out
}

// FireLifecycle runs every handler registered for event, in order. The first
// handler error stops the chain and is returned to the caller.
func (r *Registry) FireLifecycle(ctx context.Context, event interaction.EventType, i *interaction.Interaction) error {
	for _, h := range r.LifecycleHandlers(event) {
		if err := h(ctx, i); err != nil {
			return err
		}
	}
	return nil
}
