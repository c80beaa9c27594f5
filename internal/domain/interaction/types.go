// Package interaction defines the interaction payload model for the gateway:
// the wire types the platform posts to the webhook, the classification of a
// payload into a handled kind, and the read-only facade handed to handlers.
// This package has zero external dependencies.
package interaction

// Type is the numeric interaction type the platform sends in the payload.
type Type int

// Published interaction type codes. The gateway handles Ping,
// ApplicationCommand and MessageComponent; Autocomplete and ModalSubmit are
// known but not implemented and receive the default "not yet supported"
// response.
const (
	TypePing               Type = 1
	TypeApplicationCommand Type = 2
	TypeMessageComponent   Type = 3
	TypeAutocomplete       Type = 4
	TypeModalSubmit        Type = 5
)

// Component type codes carried in data.component_type for message components.
const (
	ComponentButton            = 2
	ComponentStringSelect      = 3
	ComponentTextInput         = 4
	ComponentUserSelect        = 5
	ComponentRoleSelect        = 6
	ComponentMentionableSelect = 7
	ComponentChannelSelect     = 8
)

// Kind is the classification of a payload after inspection.
type Kind int

const (
	// KindUnrecognized means the type code is outside the published range.
	// Surfaced to the caller as HTTP 400.
	KindUnrecognized Kind = iota

	// KindPing is the platform liveness check. Acked without routing.
	KindPing

	// KindCommand is a slash-command invocation routed by command name.
	KindCommand

	// KindButton is a button click routed by custom id.
	KindButton

	// KindMenu is a select-menu submission routed by custom id.
	KindMenu

	// KindUnsupported is a published type code the gateway does not route
	// (autocomplete, modal submit). Answered with the default response.
	KindUnsupported
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindMenu:
		return "menu"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unrecognized"
	}
}
