package conversation

import (
	"time"

	"tamil-assistant/internal/domain"
)

// DefaultMaxHistory bounds the history when no limit is configured.
const DefaultMaxHistory = 10

// History keeps the most recent turns of a conversation.
type History struct {
	max     int
	enabled bool
	turns   []domain.Turn
}

func NewHistory(max int, enabled bool) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &History{max: max, enabled: enabled}
}

// Append records a turn and drops the oldest ones beyond the limit.
// It does nothing when history is disabled.
func (h *History) Append(role domain.Role, content string, at time.Time) {
	if !h.enabled {
		return
	}
	h.turns = append(h.turns, domain.Turn{Role: role, Content: content, Timestamp: at})
	if over := len(h.turns) - h.max; over > 0 {
		h.turns = append(h.turns[:0:0], h.turns[over:]...)
	}
}

// Turns returns a copy of the recorded turns, oldest first.
func (h *History) Turns() []domain.Turn {
	out := make([]domain.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }

func (h *History) Clear() { h.turns = nil }
