// Package library provides durable storage for saved scenes.
//
// It is a deliberately thin layer: rows hold the deterministic
// serialization of a resource plus its registry discriminant, and loading
// goes back through the scene registry so the library never interprets
// document contents itself. Uses SQLite with WAL mode for concurrent read
// access.
package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halfgrid/scenecore/internal/scene"
	"github.com/halfgrid/scenecore/internal/value"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// ErrNotFound is returned when a named scene does not exist.
var ErrNotFound = errors.New("scene not found")

// Library is a SQLite-backed collection of saved scenes.
type Library struct {
	db *sql.DB
}

// Entry describes one saved scene without its body.
type Entry struct {
	Name         string
	ResourceType string
	Revision     int64
	SavedAt      time.Time
}

// Open creates or opens a library database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Library, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	slog.Debug("scene library opened", "path", path)
	return &Library{db: db}, nil
}

// Close closes the database connection.
func (l *Library) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Save upserts a resource under name, bumping the revision on replace.
// The stored body is the deterministic serialization, so saving an
// unchanged document produces a byte-identical body.
func (l *Library) Save(ctx context.Context, name string, resource scene.Resource) error {
	body, err := value.MarshalDeterministic(resource.Serialize())
	if err != nil {
		return fmt.Errorf("save scene %q: %w", name, err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO scenes (name, resource_type, body, revision, saved_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET
			resource_type = excluded.resource_type,
			body          = excluded.body,
			revision      = scenes.revision + 1,
			saved_at      = excluded.saved_at
	`,
		name,
		resource.ResourceType(),
		string(body),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save scene %q: %w", name, err)
	}

	slog.Info("scene saved", "name", name, "resourceType", resource.ResourceType())
	return nil
}

// Load reconstructs the named resource through the scene registry.
// Returns ErrNotFound if no scene has that name; an unregistered
// resource_type column surfaces as the registry's ConfigurationError.
func (l *Library) Load(ctx context.Context, name string) (scene.Resource, error) {
	var resourceType, body string
	err := l.db.QueryRowContext(ctx,
		`SELECT resource_type, body FROM scenes WHERE name = ?`, name,
	).Scan(&resourceType, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load scene %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", name, err)
	}

	decoded, err := value.Unmarshal([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", name, err)
	}
	json, ok := decoded.(value.Object)
	if !ok {
		return nil, fmt.Errorf("load scene %q: body is %T, want object", name, decoded)
	}

	resource, err := scene.NewResource(resourceType, json)
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", name, err)
	}
	return resource, nil
}

// Get returns the named entry's metadata and raw body.
func (l *Library) Get(ctx context.Context, name string) (Entry, string, error) {
	var (
		entry   Entry
		body    string
		savedAt string
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT name, resource_type, body, revision, saved_at FROM scenes WHERE name = ?`, name,
	).Scan(&entry.Name, &entry.ResourceType, &body, &entry.Revision, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, "", fmt.Errorf("get scene %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Entry{}, "", fmt.Errorf("get scene %q: %w", name, err)
	}
	entry.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
	return entry, body, nil
}

// List returns all saved entries ordered by name.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT name, resource_type, revision, saved_at FROM scenes ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			savedAt string
		)
		if err := rows.Scan(&entry.Name, &entry.ResourceType, &entry.Revision, &savedAt); err != nil {
			return nil, fmt.Errorf("list scenes: %w", err)
		}
		entry.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return entries, nil
}

// Delete removes the named scene. Deleting a missing name returns
// ErrNotFound so callers can distinguish it from success.
func (l *Library) Delete(ctx context.Context, name string) error {
	result, err := l.db.ExecContext(ctx, `DELETE FROM scenes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete scene %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scene %q: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete scene %q: %w", name, ErrNotFound)
	}
	slog.Info("scene deleted", "name", name)
	return nil
}
