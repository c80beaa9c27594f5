// Package dispatch implements the interaction pipeline: signature
// verification, payload classification, registry routing, lifecycle event
// fan-out and construction of the synchronous response. One Dispatch call
// handles one delivery end to end.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hookline/interactions-gateway/internal/domain/interaction"
	"github.com/hookline/interactions-gateway/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// Errors
// ═══════════════════════════════════════════════════════════════════════════

var (
	// ErrMissingSignatureHeaders indicates the delivery arrived without the
	// signature or timestamp header.
	ErrMissingSignatureHeaders = errors.New("dispatch: missing request signature")

	// ErrInvalidSignature indicates the signature did not verify against
	// the application public key.
	ErrInvalidSignature = errors.New("dispatch: invalid request signature")
)

// Canned response texts for interactions that cannot be routed.
const (
	msgCommandNotRegistered = "This command is not registered with Interaction Gateway API."
	msgMenuNotRegistered    = "This menu is not registered with Interaction Gateway API."
	msgButtonNotRegistered  = "This button is not registered with Interaction Gateway API."
	msgNotSupported         = "This interaction is not yet supported by Interaction Gateway API."
)

// ═══════════════════════════════════════════════════════════════════════════
// Collaborator interfaces
// ═══════════════════════════════════════════════════════════════════════════

// Verifier checks the detached signature over timestamp||body.
type Verifier interface {
	Verify(timestamp string, body []byte, signatureHex string) (bool, error)
}

// ReplayGuard records interaction ids and reports whether an id was seen
// before. Used to drop platform redeliveries so handlers run at most once.
type ReplayGuard interface {
	FirstSeen(ctx context.Context, interactionID string) (bool, error)
}

// Observer receives a record of every completed dispatch. Implementations
// must not block; the dispatcher calls them on the request path after the
// response is decided.
type Observer interface {
	DispatchCompleted(ctx context.Context, rec Completion)
}

// Completion summarizes one finished dispatch for observers.
type Completion struct {
	InteractionID string
	Kind          interaction.Kind
	Handled       bool
	Status        int
	CommandName   string
	CustomID      string
	GuildID       string
	Duration      time.Duration
	Err           error
}

// ═══════════════════════════════════════════════════════════════════════════
// Dispatcher
// ═══════════════════════════════════════════════════════════════════════════

// Envelope is one raw delivery as received on the wire.
type Envelope struct {
	Signature string
	Timestamp string
	Body      []byte
}

// Result is the outcome of a successful dispatch: the HTTP status to return
// and the JSON-serializable body.
type Result struct {
	Status int
	Body   any
}

// detail mirrors the error body shape used for signature and recognition
// failures.
type detail struct {
	Detail string `json:"detail"`
}

// Dispatcher runs the interaction pipeline. ReplayGuard and Observer are
// optional; a nil guard admits every delivery and a nil observer is skipped.
type Dispatcher struct {
	verifier Verifier
	registry *Registry
	guard    ReplayGuard
	observer Observer
	log      *logger.Logger
}

// NewDispatcher wires the pipeline together.
func NewDispatcher(verifier Verifier, registry *Registry, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Default()
	}
	return &Dispatcher{
		verifier: verifier,
		registry: registry,
		log:      log.With(logger.Component("dispatcher")),
	}
}

// WithReplayGuard enables redelivery suppression.
func (d *Dispatcher) WithReplayGuard(g ReplayGuard) *Dispatcher {
	d.guard = g
	return d
}

// WithObserver attaches a completion observer.
func (d *Dispatcher) WithObserver(o Observer) *Dispatcher {
	d.observer = o
	return d
}

// Dispatch processes one delivery. The returned Result carries the status
// and body to send back; a non-nil error means the routed handler or a
// lifecycle handler failed and the caller should answer with a server error.
// Authentication and recognition failures are reported through the Result,
// not the error.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) (*Result, error) {
	start := time.Now()

	if env.Signature == "" || env.Timestamp == "" {
		d.log.Warn("request rejected", logger.Err(ErrMissingSignatureHeaders))
		return &Result{Status: 401, Body: detail{Detail: "missing request signature"}}, nil
	}

	ok, err := d.verifier.Verify(env.Timestamp, env.Body, env.Signature)
	if err != nil || !ok {
		if err != nil {
			d.log.Warn("signature verification failed", logger.Err(err))
		} else {
			d.log.Warn("request rejected", logger.Err(ErrInvalidSignature))
		}
		return &Result{Status: 401, Body: detail{Detail: "invalid request signature"}}, nil
	}

	payload, err := interaction.Decode(env.Body)
	if err != nil {
		d.log.Warn("payload rejected", logger.Err(err))
		return &Result{Status: 400, Body: detail{Detail: "malformed interaction payload"}}, nil
	}

	kind := interaction.Classify(payload)
	in := interaction.NewInteraction(payload, kind)

	res, handled, err := d.route(ctx, in)
	d.observe(ctx, in, handled, res, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// route classifies and executes one already-verified interaction.
func (d *Dispatcher) route(ctx context.Context, in *interaction.Interaction) (*Result, bool, error) {
	log := d.log.With(
		logger.InteractionID(in.ID()),
		logger.InteractionKind(in.Kind().String()),
	)

	switch in.Kind() {
	case interaction.KindPing:
		log.Debug("ping acknowledged")
		return &Result{Status: 200, Body: interaction.Pong()}, false, nil

	case interaction.KindCommand:
		name := in.CommandName()
		handler, ok := d.registry.Command(name)
		if !ok {
			log.Info("command not registered", logger.CommandName(name))
			return &Result{Status: 200, Body: interaction.Ephemeral(msgCommandNotRegistered)}, false, nil
		}
		if res, stop, err := d.admit(ctx, in, log); stop {
			return res, false, err
		}
		if err := d.fireLifecycle(ctx, in); err != nil {
			return nil, true, err
		}
		resp, err := handler(ctx, in, in.Options())
		if err != nil {
			return nil, true, fmt.Errorf("command %q: %w", name, err)
		}
		return &Result{Status: 200, Body: resp}, true, nil

	case interaction.KindButton:
		id := in.CustomID()
		handler, ok := d.registry.Button(id)
		if !ok {
			log.Info("button not registered", logger.CustomID(id))
			return &Result{Status: 200, Body: interaction.Ephemeral(msgButtonNotRegistered)}, false, nil
		}
		if res, stop, err := d.admit(ctx, in, log); stop {
			return res, false, err
		}
		if err := d.fireLifecycle(ctx, in); err != nil {
			return nil, true, err
		}
		resp, err := handler(ctx, in)
		if err != nil {
			return nil, true, fmt.Errorf("button %q: %w", id, err)
		}
		return &Result{Status: 200, Body: resp}, true, nil

	case interaction.KindMenu:
		id := in.CustomID()
		handler, ok := d.registry.Menu(id)
		if !ok {
			log.Info("menu not registered", logger.CustomID(id))
			return &Result{Status: 200, Body: interaction.Ephemeral(msgMenuNotRegistered)}, false, nil
		}
		if res, stop, err := d.admit(ctx, in, log); stop {
			return res, false, err
		}
		if err := d.fireLifecycle(ctx, in); err != nil {
			return nil, true, err
		}
		log.Debug("menu routed", logger.String("selection", in.FirstValue()))
		resp, err := handler(ctx, in, in.Values())
		if err != nil {
			return nil, true, fmt.Errorf("menu %q: %w", id, err)
		}
		return &Result{Status: 200, Body: resp}, true, nil

	case interaction.KindUnsupported:
		log.Info("unsupported interaction type")
		return &Result{Status: 200, Body: interaction.Ephemeral(msgNotSupported)}, false, nil

	default:
		log.Warn("unrecognized interaction type")
		return &Result{Status: 400, Body: detail{Detail: "Interaction not recognised by Interaction Gateway API."}}, false, nil
	}
}

// admit consults the replay guard. A redelivered interaction is acknowledged
// with an empty ephemeral-style default so the platform stops retrying, but
// no handler or lifecycle event runs. Guard errors fail open: the delivery
// proceeds.
func (d *Dispatcher) admit(ctx context.Context, in *interaction.Interaction, log *logger.Logger) (*Result, bool, error) {
	if d.guard == nil {
		return nil, false, nil
	}
	first, err := d.guard.FirstSeen(ctx, in.ID())
	if err != nil {
		log.Warn("replay guard unavailable", logger.Err(err))
		return nil, false, nil
	}
	if !first {
		log.Info("duplicate delivery dropped")
		return &Result{Status: 200, Body: interaction.Ephemeral("This interaction was already processed.")}, true, nil
	}
	return nil, false, nil
}

// fireLifecycle runs interaction_receive followed by the kind-specific
// event. Any handler error aborts the dispatch.
func (d *Dispatcher) fireLifecycle(ctx context.Context, in *interaction.Interaction) error {
	if err := d.registry.FireLifecycle(ctx, interaction.EventInteractionReceive, in); err != nil {
		return fmt.Errorf("lifecycle %s: %w", interaction.EventInteractionReceive, err)
	}
	if event, ok := interaction.KindEvent(in.Kind()); ok {
		if err := d.registry.FireLifecycle(ctx, event, in); err != nil {
			return fmt.Errorf("lifecycle %s: %w", event, err)
		}
	}
	return nil
}

func (d *Dispatcher) observe(ctx context.Context, in *interaction.Interaction, handled bool, res *Result, elapsed time.Duration, err error) {
	if d.observer == nil {
		return
	}
	rec := Completion{
		InteractionID: in.ID(),
		Kind:          in.Kind(),
		Handled:       handled,
		CommandName:   in.CommandName(),
		CustomID:      in.CustomID(),
		GuildID:       in.GuildID(),
		Duration:      elapsed,
		Err:           err,
	}
	if res != nil {
		rec.Status = res.Status
	} else {
		rec.Status = 500
	}
	d.observer.DispatchCompleted(ctx, rec)
}
