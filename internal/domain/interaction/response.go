package interaction

// Response types understood by the platform for the synchronous reply.
const (
	// ResponsePong acknowledges a ping interaction.
	ResponsePong = 1

	// ResponseChannelMessage posts a message in the originating channel.
	ResponseChannelMessage = 4
)

// FlagEphemeral marks a message response as visible only to the invoking
// user.
const FlagEphemeral = 64

// Response is the synchronous reply envelope returned to the platform.
type Response struct {
	Type int           `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// ResponseData carries the message portion of a channel-message response.
type ResponseData struct {
	Content string `json:"content,omitempty"`
	Flags   int    `json:"flags,omitempty"`
	TTS     bool   `json:"tts,omitempty"`
}

// Pong builds the acknowledgement response for a ping interaction.
func Pong() *Response {
	return &Response{Type: ResponsePong}
}

// Message builds a plain channel-message response.
func Message(content string) *Response {
	return &Response{
		Type: ResponseChannelMessage,
		Data: &ResponseData{Content: content},
	}
}

// Ephemeral builds a channel-message response visible only to the invoking
// user.
func Ephemeral(content string) *Response {
	return &Response{
		Type: ResponseChannelMessage,
		Data: &ResponseData{Content: content, Flags: FlagEphemeral},
	}
}
