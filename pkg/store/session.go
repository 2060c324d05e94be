package store

import (
	"errors"
	"time"

	"querymate-be/pkg/contextbuilder"
)

const (
	StageCollecting = "collecting"
	StageComplete   = "complete"
)

var (
	ErrVersionConflict = errors.New("session version conflict")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// ContextSession is one user's in-progress interview.
type ContextSession struct {
	UserID        string                `json:"user_id"`
	Stage         string                `json:"stage"` // "collecting" | "complete"
	CollectedData contextbuilder.Fields `json:"collected_data"`
	Messages      []contextbuilder.Turn `json:"messages"`

	// Rendered once when the interview completes.
	FormattedContext string `json:"formatted_context,omitempty"`

	// Reopened marks a session started to amend a committed document.
	Reopened bool `json:"reopened,omitempty"`

	Version   int64     `json:"version"` // optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContextSession starts a collecting session seeded with an assistant
// greeting.
func NewContextSession(userID, greeting string, now time.Time) *ContextSession {
	s := &ContextSession{
		UserID: userID,
		Stage:  StageCollecting,
	}
	if greeting != "" {
		s.Append("assistant", greeting, now)
	}
	return s
}

func (s *ContextSession) Append(role, content string, at time.Time) {
	s.Messages = append(s.Messages, contextbuilder.Turn{Role: role, Content: content, CreatedAt: at})
}

// UserTurns counts messages sent by the user.
func (s *ContextSession) UserTurns() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == "user" {
			n++
		}
	}
	return n
}

// InitialMessage is the first assistant utterance, if any.
func (s *ContextSession) InitialMessage() string {
	for _, m := range s.Messages {
		if m.Role == "assistant" {
			return m.Content
		}
	}
	return ""
}

// Clone returns a deep copy so stored sessions never alias caller state.
func (s *ContextSession) Clone() *ContextSession {
	if s == nil {
		return nil
	}
	out := *s
	out.CollectedData = s.CollectedData.Clone()
	if s.Messages != nil {
		out.Messages = make([]contextbuilder.Turn, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return &out
}

// TruncateMessages keeps the most recent limit messages. A limit <= 0 keeps
// everything.
func TruncateMessages(messages []contextbuilder.Turn, limit int) []contextbuilder.Turn {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}
