// Package callback encodes selection payloads into the opaque identifiers
// attached to selectable reply options. The transport layer caps option
// identifiers at 64 bytes, so encoding enforces that ceiling as a hard
// precondition rather than truncating silently.
package callback

import (
	"encoding/json"
	"fmt"
)

// MaxTokenSize is the transport layer's ceiling on option identifiers.
const MaxTokenSize = 64

// ErrPayloadTooLarge is returned when a payload's encoded form exceeds
// MaxTokenSize. Callers must drop the option rather than send it.
var ErrPayloadTooLarge = fmt.Errorf("callback payload exceeds %d bytes", MaxTokenSize)

// Selection identifies one article title the user may pick.
type Selection struct {
	Title string `json:"t"`
}

// Encode serializes a selection into a token suitable for an option
// identifier. Fails with ErrPayloadTooLarge when the encoded form exceeds
// the transport ceiling.
func Encode(sel Selection) (string, error) {
	data, err := json.Marshal(sel)
	if err != nil {
		return "", fmt.Errorf("failed to encode selection: %w", err)
	}

	if len(data) > MaxTokenSize {
		return "", fmt.Errorf("%w: %d bytes for title %q", ErrPayloadTooLarge, len(data), sel.Title)
	}

	return string(data), nil
}

// Decode is the exact inverse of Encode. Tokens not produced by Encode
// yield an error; the transport is trusted to echo tokens verbatim.
func Decode(token string) (Selection, error) {
	var sel Selection
	if err := json.Unmarshal([]byte(token), &sel); err != nil {
		return Selection{}, fmt.Errorf("failed to decode callback token: %w", err)
	}
	return sel, nil
}
