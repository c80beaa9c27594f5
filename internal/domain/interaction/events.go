package interaction

// EventType identifies a lifecycle event fired while an interaction moves
// through the gateway. Lifecycle handlers subscribe by event type and run
// synchronously, in registration order, before the routed handler executes.
type EventType string

const (
	// EventStartup fires once when the gateway finishes booting. Handlers
	// receive a nil interaction since no request is in flight.
	EventStartup EventType = "startup"

	// EventInteractionReceive fires for every interaction that routed to a
	// registered handler, before the kind-specific event.
	EventInteractionReceive EventType = "interaction_receive"

	// EventCommandReceive fires when a registered application command is
	// about to run.
	EventCommandReceive EventType = "command_receive"

	// EventButtonClick fires when a registered button handler is about to
	// run.
	EventButtonClick EventType = "button_click"

	// EventMenuSelect fires when a registered select-menu handler is about
	// to run.
	EventMenuSelect EventType = "menu_select"
)

// KindEvent maps an interaction kind to its kind-specific lifecycle event.
// The second return is false for kinds that carry no event.
func KindEvent(k Kind) (EventType, bool) {
	switch k {
	case KindCommand:
		return EventCommandReceive, true
	case KindButton:
		return EventButtonClick, true
	case KindMenu:
		return EventMenuSelect, true
	default:
		return "", false
	}
}
