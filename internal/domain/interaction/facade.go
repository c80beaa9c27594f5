package interaction

// Interaction is a read-only view over one interaction payload. It is built
// per dispatch, handed to handlers as their first argument, and never shared
// across requests. Accessors that return slices return copies so a handler
// cannot mutate the underlying payload.
type Interaction struct {
	payload *Payload
	kind    Kind
}

// NewInteraction wraps a classified payload in a facade.
func NewInteraction(p *Payload, kind Kind) *Interaction {
	return &Interaction{payload: p, kind: kind}
}

// ID returns the interaction delivery id.
func (i *Interaction) ID() string {
	return i.payload.ID
}

// Kind returns the classified kind of this interaction.
func (i *Interaction) Kind() Kind {
	return i.kind
}

// ApplicationID returns the bot application id the interaction targets.
func (i *Interaction) ApplicationID() string {
	return i.payload.ApplicationID
}

// Token returns the continuation token for follow-up responses.
func (i *Interaction) Token() string {
	return i.payload.Token
}

// GuildID returns the originating guild id, or "" for DM interactions.
func (i *Interaction) GuildID() string {
	return i.payload.GuildID
}

// ChannelID returns the originating channel id.
func (i *Interaction) ChannelID() string {
	return i.payload.ChannelID
}

// User returns the invoking user. For guild interactions the user is nested
// inside the member object; both shapes resolve here.
func (i *Interaction) User() *User {
	if i.payload.User != nil {
		return i.payload.User
	}
	if i.payload.Member != nil {
		return i.payload.Member.User
	}
	return nil
}

// Member returns the invoking guild member, or nil for DM interactions.
func (i *Interaction) Member() *Member {
	return i.payload.Member
}

// CommandName returns the invoked command name, or "" for non-commands.
func (i *Interaction) CommandName() string {
	if i.payload.Data == nil {
		return ""
	}
	return i.payload.Data.Name
}

// CustomID returns the component custom id, or "" for non-components.
func (i *Interaction) CustomID() string {
	if i.payload.Data == nil {
		return ""
	}
	return i.payload.Data.CustomID
}

// Options returns the ordered command options as supplied by the platform.
func (i *Interaction) Options() []CommandOption {
	if i.payload.Data == nil || len(i.payload.Data.Options) == 0 {
		return nil
	}
	out := make([]CommandOption, len(i.payload.Data.Options))
	copy(out, i.payload.Data.Options)
	return out
}

// FirstValue returns the primary select-menu selection, or "" when nothing
// was selected.
func (i *Interaction) FirstValue() string {
	return i.payload.FirstValue()
}

// Values returns the ordered select-menu values as supplied by the platform.
func (i *Interaction) Values() []string {
	if i.payload.Data == nil || len(i.payload.Data.Values) == 0 {
		return nil
	}
	out := make([]string, len(i.payload.Data.Values))
	copy(out, i.payload.Data.Values)
	return out
}
