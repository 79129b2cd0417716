package chat

import (
	"context"
	"errors"
	"fmt"

	"valles-rodes/internal/models"
)

// ErrEndOfStream is returned by Stream.Next once the completion is finished.
var ErrEndOfStream = errors.New("chat: end of stream")

// Credential is the API key the completion provider is called with.
type Credential struct {
	APIKey string
}

// Provider opens a streaming completion for an ordered list of messages. The
// first message is the persona (system role), followed by the conversation.
type Provider interface {
	Stream(ctx context.Context, cred Credential, messages []models.ChatMessage) (Stream, error)
}

// Stream yields incremental text. Next returns ErrEndOfStream at the end, a
// *MalformedFragmentError for a fragment that could not be decoded (the
// stream is still usable), or any other error when the transport failed.
type Stream interface {
	Next() (string, error)
	Close() error
}

type MalformedFragmentError struct {
	Reason string
	Err    error
}

func (e *MalformedFragmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed fragment: %s: %v", e.Reason, e.Err)
	}
	return "malformed fragment: " + e.Reason
}

func (e *MalformedFragmentError) Unwrap() error { return e.Err }
