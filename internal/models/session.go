package models

import "time"

// TurnRole identifies who produced a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// IsValid returns true if the turn role is recognized.
func (r TurnRole) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// SessionTurn is one message in a conversation session.
type SessionTurn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           TurnRole  `json:"role"`
	Text           string    `json:"text"`
	At             time.Time `json:"at"`
}
