package chat

import (
	"errors"

	"valles-rodes/internal/models"
)

var ErrEmptyTranscript = errors.New("chat: transcript is empty")

// Transcript is the ordered conversation log. It only grows at the end, and
// the one in-place edit allowed is replacing the trailing message, which is
// how a streaming reply is typed out.
type Transcript struct {
	msgs []models.ChatMessage
}

func (t *Transcript) Append(msg models.ChatMessage) {
	t.msgs = append(t.msgs, msg)
}

// ReplaceLast swaps the trailing message for msg.
func (t *Transcript) ReplaceLast(msg models.ChatMessage) error {
	if len(t.msgs) == 0 {
		return ErrEmptyTranscript
	}
	t.msgs[len(t.msgs)-1] = msg
	return nil
}

func (t *Transcript) Last() (models.ChatMessage, bool) {
	if len(t.msgs) == 0 {
		return models.ChatMessage{}, false
	}
	return t.msgs[len(t.msgs)-1], true
}

func (t *Transcript) Len() int { return len(t.msgs) }

// Messages returns a copy of the log.
func (t *Transcript) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}
