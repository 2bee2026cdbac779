package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
)

// StateStore persists protocol state across restarts. Snapshots are written
// after every successful mutation; events are appended for auditability.
type StateStore interface {
	SaveSnapshot(snap *protocol.Snapshot) error
	// LoadSnapshot returns the latest snapshot, or nil if none was saved.
	LoadSnapshot() (*protocol.Snapshot, error)
	AppendEvent(event protocol.Event) error
	Close() error
}

// PostgresStore implements StateStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS protocol_state (
		id INT PRIMARY KEY CHECK (id = 1),
		snapshot JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS protocol_events (
		seq BIGSERIAL PRIMARY KEY,
		kind VARCHAR(64) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_events_kind ON protocol_events(kind);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveSnapshot upserts the latest protocol snapshot.
func (s *PostgresStore) SaveSnapshot(snap *protocol.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO protocol_state (id, snapshot, updated_at)
	VALUES (1, $1, NOW())
	ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()
	`, payload)
	return err
}

// LoadSnapshot retrieves the latest protocol snapshot, if any.
func (s *PostgresStore) LoadSnapshot() (*protocol.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT snapshot FROM protocol_state WHERE id = 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap protocol.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// AppendEvent records a protocol event in the audit log.
func (s *PostgresStore) AppendEvent(event protocol.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO protocol_events (kind, payload) VALUES ($1, $2)",
		string(event.Kind), payload)
	return err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InMemoryStore implements StateStore for testing without a database.
type InMemoryStore struct {
	mu       sync.Mutex
	snapshot *protocol.Snapshot
	events   []protocol.Event
}

// NewInMemoryStore creates an in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// SaveSnapshot stores the snapshot in memory.
func (s *InMemoryStore) SaveSnapshot(snap *protocol.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	return nil
}

// LoadSnapshot returns the stored snapshot, or nil.
func (s *InMemoryStore) LoadSnapshot() (*protocol.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, nil
}

// AppendEvent records the event in memory.
func (s *InMemoryStore) AppendEvent(event protocol.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns all recorded events.
func (s *InMemoryStore) Events() []protocol.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// StoreSink appends every protocol event to a StateStore's audit log.
type StoreSink struct {
	Store StateStore
	// OnError observes append failures; nil drops them.
	OnError func(error)
}

// Emit implements protocol.EventSink.
func (s *StoreSink) Emit(event protocol.Event) {
	if err := s.Store.AppendEvent(event); err != nil && s.OnError != nil {
		s.OnError(err)
	}
}
