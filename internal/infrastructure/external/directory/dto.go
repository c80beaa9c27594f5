package directory

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// BotUser is the bot account behind the configured token.
type BotUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// Tag returns the user-facing bot name.
func (u BotUser) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// Application command option types accepted by the platform.
const (
	OptionSubCommand      = 1
	OptionSubCommandGroup = 2
	OptionString          = 3
	OptionInteger         = 4
	OptionBoolean         = 5
	OptionUser            = 6
	OptionChannel         = 7
	OptionRole            = 8
	OptionMentionable     = 9
	OptionNumber          = 10
)

// CommandOptionChoice is one fixed choice for a command option.
type CommandOptionChoice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// CommandOptionDefinition describes one option of an application command.
type CommandOptionDefinition struct {
	Type        int                   `json:"type"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Required    bool                  `json:"required,omitempty"`
	Choices     []CommandOptionChoice `json:"choices,omitempty"`
}

// CommandDefinition is the registration payload for one application command.
type CommandDefinition struct {
	Name              string                    `json:"name"`
	Description       string                    `json:"description"`
	Options           []CommandOptionDefinition `json:"options,omitempty"`
	DMPermission      bool                      `json:"dm_permission"`
	DefaultPermission bool                      `json:"default_permission"`
}

// RegisteredCommand is the platform's record of a registered command.
type RegisteredCommand struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	GuildID       string `json:"guild_id,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Version       string `json:"version"`
}

// APIError is an error body returned by the platform.
type APIError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("directory api error: status %d code %d: %s", e.StatusCode, e.Code, e.Message)
}
