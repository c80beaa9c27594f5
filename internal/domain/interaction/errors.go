package interaction

import "errors"

// ErrMalformedBody is returned when the request body is not a valid JSON
// interaction payload. Checked with errors.Is().
var ErrMalformedBody = errors.New("interaction: malformed request body")
