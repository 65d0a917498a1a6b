// Package profilestore keeps saved form input in SQLite so a shopper can
// return to a profile later. Entries expire after a fixed age; nothing here
// promises durability beyond that.
package profilestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/josz5930/CDC-Value-For-You/internal/profile"
	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no live profile exists under an ID.
var ErrNotFound = errors.New("profile not found")

// Saved is a stored profile with its metadata.
type Saved struct {
	ID      string        `json:"id"`
	Input   profile.Input `json:"input"`
	SavedAt time.Time     `json:"savedAt"`
}

// Store implements profile persistence using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
	maxAge time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for expiry and cleanup messages.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAge overrides how long a saved profile stays loadable.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New opens (and migrates) the SQLite database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{
		db:     db,
		logger: zap.NewNop(),
		maxAge: constants.ProfileMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		input_json TEXT NOT NULL,
		saved_at INTEGER NOT NULL -- unix nanoseconds
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_saved_at
		ON profiles(saved_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores in under id, replacing any previous entry. An empty id gets a
// fresh UUID. The ID used is returned.
func (s *Store) Save(ctx context.Context, id string, in profile.Input) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, input_json, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET input_json = excluded.input_json, saved_at = excluded.saved_at`,
		id, string(data), s.now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save profile %s: %w", id, err)
	}
	return id, nil
}

// Load returns the profile saved under id. Expired entries are deleted and
// reported as ErrNotFound. Stored fields that no longer parse as numbers come
// back empty so the caller can fall back to defaults.
func (s *Store) Load(ctx context.Context, id string) (Saved, error) {
	s.mu.RLock()
	var (
		inputJSON string
		savedAtNs int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT input_json, saved_at FROM profiles WHERE id = ?", id,
	).Scan(&inputJSON, &savedAtNs)
	s.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return Saved{}, ErrNotFound
	}
	if err != nil {
		return Saved{}, fmt.Errorf("failed to load profile %s: %w", id, err)
	}

	savedAt := time.Unix(0, savedAtNs).UTC()
	if s.now().Sub(savedAt) > s.maxAge {
		s.logger.Info("discarding expired profile",
			zap.String("op", "profilestore.Load"),
			zap.String("id", id),
			zap.Time("savedAt", savedAt),
		)
		if delErr := s.Delete(ctx, id); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			return Saved{}, delErr
		}
		return Saved{}, ErrNotFound
	}

	var in profile.Input
	if err := json.Unmarshal([]byte(inputJSON), &in); err != nil {
		s.logger.Warn("discarding undecodable profile",
			zap.String("op", "profilestore.Load"),
			zap.String("id", id),
			zap.Error(err),
		)
		if delErr := s.Delete(ctx, id); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			return Saved{}, delErr
		}
		return Saved{}, ErrNotFound
	}

	return Saved{ID: id, Input: cleanInput(in), SavedAt: savedAt}, nil
}

// Delete removes the profile saved under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired deletes every profile older than the store's max age and
// returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE saved_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge profiles: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("purged expired profiles",
			zap.String("op", "profilestore.PurgeExpired"),
			zap.Int64("count", n),
		)
	}
	return n, nil
}

func cleanInput(in profile.Input) profile.Input {
	clean := func(raw string) string {
		if _, ok := profile.ParseNumber(raw); !ok {
			return ""
		}
		return profile.Sanitize(raw)
	}
	return profile.Input{
		VoucherAmount:       clean(in.VoucherAmount),
		VoucherDenomination: clean(in.VoucherDenomination),
		SupermarketSpend:    clean(in.SupermarketSpend),
		SupermarketVisits:   clean(in.SupermarketVisits),
		HeartlandSpend:      clean(in.HeartlandSpend),
		HeartlandVisits:     clean(in.HeartlandVisits),
		WTPPercentage:       clean(in.WTPPercentage),
	}
}
