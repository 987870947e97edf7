// Package session tracks the turns of one advice conversation.
package session

import (
	"errors"
	"fmt"

	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/pkg/tokenizer"
)

// ErrInvalidTurnOrder is returned when an appended turn is timestamped
// before the last turn already in the session.
var ErrInvalidTurnOrder = errors.New("turn out of chronological order")

// Session holds the ordered turns of a single conversation. A session is
// owned by one conversation at a time and is not safe for concurrent use;
// separate conversations get separate sessions.
type Session struct {
	id    string
	turns []models.SessionTurn
}

// New creates an empty session.
func New(id string) *Session {
	return &Session{id: id}
}

// Load rebuilds a session from persisted turns, validating that they are
// chronologically ordered.
func Load(id string, turns []models.SessionTurn) (*Session, error) {
	s := New(id)
	for _, t := range turns {
		if err := s.Append(t); err != nil {
			return nil, fmt.Errorf("loading session %s: %w", id, err)
		}
	}
	return s, nil
}

// ID returns the conversation identifier.
func (s *Session) ID() string {
	return s.id
}

// Append adds a turn. Turns must arrive in chronological order; equal
// timestamps are allowed because a user turn and the assistant reply may
// share one.
func (s *Session) Append(turn models.SessionTurn) error {
	if !turn.Role.IsValid() {
		return fmt.Errorf("invalid turn role %q", turn.Role)
	}
	if n := len(s.turns); n > 0 && turn.At.Before(s.turns[n-1].At) {
		return fmt.Errorf("turn at %s precedes last turn at %s: %w",
			turn.At.Format("15:04:05.000"), s.turns[n-1].At.Format("15:04:05.000"), ErrInvalidTurnOrder)
	}
	s.turns = append(s.turns, turn)
	return nil
}

// Turns returns a copy of all turns in chronological order.
func (s *Session) Turns() []models.SessionTurn {
	out := make([]models.SessionTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	return len(s.turns)
}

// Windowed returns the newest suffix of turns whose estimated token cost
// fits the budget. Oldest turns drop first; order is preserved.
func (s *Session) Windowed(budget int) []models.SessionTurn {
	if budget <= 0 {
		return nil
	}

	start := len(s.turns)
	used := 0
	for start > 0 {
		cost := tokenizer.EstimateTokens(s.turns[start-1].Text) + 4
		if used+cost > budget {
			break
		}
		used += cost
		start--
	}

	out := make([]models.SessionTurn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}
