// Package userstore persists the user's profile, charter, life events and
// conversation turns in a local SQLite database.
package userstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/sage/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidEvent is returned when a life event fails validation.
var ErrInvalidEvent = errors.New("invalid event")

// Store wraps the SQLite database holding all per-user state. It is safe
// for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex // guards entropy, which is not concurrency-safe
	entropy *rand.Rand
}

// Open opens or creates the database at the given path.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer at a time; a single pooled connection keeps
	// concurrent callers queued instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profile (
		id             INTEGER PRIMARY KEY CHECK (id = 1),
		name           TEXT NOT NULL,
		age            INTEGER NOT NULL DEFAULT 0,
		career_stage   TEXT NOT NULL DEFAULT '',
		industry       TEXT NOT NULL DEFAULT '',
		occupation     TEXT NOT NULL DEFAULT '',
		risk_tolerance TEXT NOT NULL DEFAULT '',
		time_horizon   TEXT NOT NULL DEFAULT '',
		dependents     INTEGER NOT NULL DEFAULT 0,
		tone           TEXT NOT NULL DEFAULT '',
		bio            TEXT NOT NULL DEFAULT '',
		updated_at     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS charter (
		id              INTEGER PRIMARY KEY CHECK (id = 1),
		values_json     TEXT NOT NULL DEFAULT '[]',
		non_negotiables TEXT NOT NULL DEFAULT '[]',
		long_term_goals TEXT NOT NULL DEFAULT '[]',
		anti_goals      TEXT NOT NULL DEFAULT '[]',
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS life_events (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		category     TEXT NOT NULL,
		significance INTEGER NOT NULL,
		lessons      TEXT NOT NULL DEFAULT '',
		occurred_at  TEXT NOT NULL,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_occurred ON life_events(occurred_at DESC);

	CREATE TABLE IF NOT EXISTS session_turns (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role            TEXT NOT NULL,
		text            TEXT NOT NULL,
		at              TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON session_turns(conversation_id, at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveProfile writes the singleton profile record.
func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile (id, name, age, career_stage, industry, occupation, risk_tolerance, time_horizon, dependents, tone, bio, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			career_stage = excluded.career_stage,
			industry = excluded.industry,
			occupation = excluded.occupation,
			risk_tolerance = excluded.risk_tolerance,
			time_horizon = excluded.time_horizon,
			dependents = excluded.dependents,
			tone = excluded.tone,
			bio = excluded.bio,
			updated_at = excluded.updated_at`,
		p.Name, p.Age, string(p.CareerStage), p.Industry, p.Occupation,
		string(p.RiskTolerance), string(p.TimeHorizon), p.Dependents,
		string(p.Tone), p.Bio, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Profile reads the singleton profile record.
func (s *Store) Profile(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	var stage, risk, horizon, tone string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, age, career_stage, industry, occupation, risk_tolerance, time_horizon, dependents, tone, bio
		FROM profile WHERE id = 1`).
		Scan(&p.Name, &p.Age, &stage, &p.Industry, &p.Occupation, &risk, &horizon, &p.Dependents, &tone, &p.Bio)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("profile: %w", ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	p.CareerStage = models.CareerStage(stage)
	p.RiskTolerance = models.RiskTolerance(risk)
	p.TimeHorizon = models.TimeHorizon(horizon)
	p.Tone = models.AdviceTone(tone)
	return p, nil
}

// SaveCharter writes the singleton charter record.
func (s *Store) SaveCharter(ctx context.Context, c models.Charter) error {
	vals, err := json.Marshal(emptyIfNil(c.Values))
	if err != nil {
		return fmt.Errorf("encoding charter values: %w", err)
	}
	nn, _ := json.Marshal(emptyIfNil(c.NonNegotiables))
	goals, _ := json.Marshal(emptyIfNil(c.LongTermGoals))
	anti, _ := json.Marshal(emptyIfNil(c.AntiGoals))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO charter (id, values_json, non_negotiables, long_term_goals, anti_goals, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			values_json = excluded.values_json,
			non_negotiables = excluded.non_negotiables,
			long_term_goals = excluded.long_term_goals,
			anti_goals = excluded.anti_goals,
			updated_at = excluded.updated_at`,
		string(vals), string(nn), string(goals), string(anti),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving charter: %w", err)
	}
	return nil
}

// Charter reads the singleton charter record. A missing charter is returned
// as an empty charter rather than an error; having no charter is a normal
// state for a fresh install.
func (s *Store) Charter(ctx context.Context) (models.Charter, error) {
	var vals, nn, goals, anti string
	err := s.db.QueryRowContext(ctx, `
		SELECT values_json, non_negotiables, long_term_goals, anti_goals
		FROM charter WHERE id = 1`).
		Scan(&vals, &nn, &goals, &anti)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Charter{}, nil
	}
	if err != nil {
		return models.Charter{}, fmt.Errorf("reading charter: %w", err)
	}

	var c models.Charter
	if err := json.Unmarshal([]byte(vals), &c.Values); err != nil {
		return models.Charter{}, fmt.Errorf("decoding charter values: %w", err)
	}
	_ = json.Unmarshal([]byte(nn), &c.NonNegotiables)
	_ = json.Unmarshal([]byte(goals), &c.LongTermGoals)
	_ = json.Unmarshal([]byte(anti), &c.AntiGoals)
	return c, nil
}

// AddEvent appends a life event and returns its assigned ID.
func (s *Store) AddEvent(ctx context.Context, e models.LifeEvent) (string, error) {
	if !e.Category.IsValid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, e.Category)
	}
	if e.Significance < 1 || e.Significance > 10 {
		return "", fmt.Errorf("%w: significance must be 1-10, got %d", ErrInvalidEvent, e.Significance)
	}

	id := s.newID()
	now := time.Now().UTC()
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO life_events (id, title, description, category, significance, lessons, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.Title, e.Description, string(e.Category), e.Significance, e.Lessons,
		occurred.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("adding event: %w", err)
	}

	s.logger.Debug("added life event", "id", id, "category", e.Category)
	return id, nil
}

// RecentEvents returns the newest events first, up to limit.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]models.LifeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, significance, lessons, occurred_at, created_at
		FROM life_events ORDER BY occurred_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []models.LifeEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEvent removes a life event by ID.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM life_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendTurn persists one conversation turn and returns its assigned ID.
func (s *Store) AppendTurn(ctx context.Context, t models.SessionTurn) (string, error) {
	if !t.Role.IsValid() {
		return "", fmt.Errorf("invalid turn role %q", t.Role)
	}

	id := t.ID
	if id == "" {
		id = s.newID()
	}
	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_turns (id, conversation_id, role, text, at)
		VALUES (?, ?, ?, ?, ?)`,
		id, t.ConversationID, string(t.Role), t.Text, at.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("appending turn: %w", err)
	}
	return id, nil
}

// Turns returns all turns of a conversation in chronological order.
func (s *Store) Turns(ctx context.Context, conversationID string) ([]models.SessionTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, text, at
		FROM session_turns WHERE conversation_id = ? ORDER BY at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var turns []models.SessionTurn
	for rows.Next() {
		var t models.SessionTurn
		var role, at string
		if err := rows.Scan(&t.ID, &t.ConversationID, &role, &t.Text, &at); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = models.TurnRole(role)
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			t.At = ts
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEvent(rows *sql.Rows) (models.LifeEvent, error) {
	var e models.LifeEvent
	var category, occurred, created string
	if err := rows.Scan(&e.ID, &e.Title, &e.Description, &category, &e.Significance, &e.Lessons, &occurred, &created); err != nil {
		return models.LifeEvent{}, fmt.Errorf("scanning event: %w", err)
	}
	e.Category = models.EventCategory(category)
	if t, err := time.Parse(time.RFC3339, occurred); err == nil {
		e.OccurredAt = t
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		e.CreatedAt = t
	}
	return e, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
