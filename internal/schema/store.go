package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"datachat/internal/logging"
)

// Store owns the cached schema for one database connection. Readers always
// see a complete snapshot: Refresh builds the new schema and its formatted
// prompt off-lock, then swaps both in together.
type Store struct {
	mu        sync.RWMutex
	conn      *sql.DB
	inspector Inspector
	current   *Schema
	prompt    string
}

func NewStore(conn *sql.DB, inspector Inspector) *Store {
	return &Store{
		conn:      conn,
		inspector: inspector,
		prompt:    EmptySchemaPrompt,
	}
}

// Detect returns the cached schema, inspecting the database on first use.
// A database with zero tables caches successfully as an empty schema.
func (s *Store) Detect(ctx context.Context) (*Schema, error) {
	s.mu.RLock()
	cached := s.current
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.Refresh(ctx)
}

// Refresh re-inspects the database unconditionally and replaces the cached
// schema and prompt in one step. Concurrent refreshes race benignly: the
// last swap wins and every reader sees one coherent snapshot.
func (s *Store) Refresh(ctx context.Context) (*Schema, error) {
	logging.Debug("Detecting database schema...")

	detected, err := s.inspector.Inspect(ctx, s.conn)
	if err != nil {
		return nil, fmt.Errorf("schema detection failed: %w", err)
	}
	prompt := FormatForLLM(detected)

	s.mu.Lock()
	s.current = detected
	s.prompt = prompt
	s.mu.Unlock()

	logging.Info("Schema detected: %d tables, %d relationships", len(detected.Tables), len(detected.Relationships))
	return detected, nil
}

// Prompt returns the formatted schema text for model instructions. Before
// the first successful detection it returns EmptySchemaPrompt.
func (s *Store) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// Current returns the cached schema without touching the database. It is nil
// until the first successful Detect or Refresh.
func (s *Store) Current() *Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
