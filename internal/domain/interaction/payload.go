package interaction

import (
	"encoding/json"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRE TYPES
// These mirror the platform's interaction schema. Only the attributes the
// gateway consumes are modeled; unknown fields are ignored on decode.
// ══════════════════════════════════════════════════════════════════════════════

// Payload is the decoded body of one interaction request.
type Payload struct {
	// ID uniquely identifies this interaction delivery.
	ID string `json:"id"`

	// ApplicationID is the bot application the interaction targets.
	ApplicationID string `json:"application_id"`

	// Type is the numeric interaction type code.
	Type Type `json:"type"`

	// Token is the continuation token for follow-up responses.
	Token string `json:"token"`

	// GuildID is the guild the interaction originated in (empty in DMs).
	GuildID string `json:"guild_id,omitempty"`

	// ChannelID is the channel the interaction originated in.
	ChannelID string `json:"channel_id,omitempty"`

	// Member is the invoking guild member (guild interactions only).
	Member *Member `json:"member,omitempty"`

	// User is the invoking user (DM interactions only).
	User *User `json:"user,omitempty"`

	// Data carries the kind-specific attributes.
	Data *PayloadData `json:"data,omitempty"`
}

// PayloadData is the kind-specific portion of a payload.
type PayloadData struct {
	// Name is the command name (application commands).
	Name string `json:"name"`

	// CustomID is the registration-time component identifier
	// (message components).
	CustomID string `json:"custom_id"`

	// ComponentType is the component type code (message components).
	ComponentType int `json:"component_type"`

	// Options are the ordered command option values as supplied remotely.
	Options []CommandOption `json:"options"`

	// Values are the ordered selections of a select menu.
	Values []string `json:"values"`
}

// CommandOption is one named option value of a command invocation.
// Value holds whatever JSON scalar the platform sent (string, number, bool).
type CommandOption struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// StringValue returns the option value as a string, or "" if it is not one.
func (o CommandOption) StringValue() string {
	s, _ := o.Value.(string)
	return s
}

// User identifies the invoking platform user.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Bot           bool   `json:"bot"`
}

// Member is the guild-scoped view of the invoking user.
type Member struct {
	User        *User    `json:"user,omitempty"`
	Nick        string   `json:"nick,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions string   `json:"permissions,omitempty"`
}

// Decode parses a raw request body into a Payload.
// A body that is not a JSON object is an ErrMalformedBody; the type code is
// not validated here - that is the classifier's job.
func Decode(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return &p, nil
}
