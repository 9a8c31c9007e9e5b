// Package sqlite provides a SQLite implementation of the memory store.
//
// SQLite is a lightweight, file-based database suitable for local use and
// small-scale deployments. Memory records are stored as JSON strings in
// TEXT fields; ranking happens in memory after loading the owner's rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/mattn/go-sqlite3"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// Client implements storage.Store using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// node generates ids for memories saved without one.
	node *snowflake.Node
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite store.
//
// Parameters:
//   - cfg: Configuration containing the database file path
//
// Returns:
//   - *Client: The SQLite store instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{db: db, node: node}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
//
// Full records are stored as JSON payloads; the indexed columns exist
// for filtering and eviction only.
func (c *Client) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			schema_version INTEGER NOT NULL
		)
	`
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := `
		CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner_id)
	`
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	cortexQuery := `
		CREATE TABLE IF NOT EXISTS cortices (
			owner_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			schema_version INTEGER NOT NULL
		)
	`
	if _, err := c.db.ExecContext(ctx, cortexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Save persists the given memories, assigning ids where absent.
//
// Saves are upserts keyed by id: re-saving a record replaces the stored
// row, so retried extraction batches never duplicate memories.
func (c *Client) Save(ctx context.Context, memories []*storage.Memory) error {
	if len(memories) == 0 {
		return nil
	}

	storage.EnsureIDs(c.node, memories)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO memories (id, owner_id, payload, created_at, schema_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			payload = excluded.payload,
			created_at = excluded.created_at,
			schema_version = excluded.schema_version
	`
	for _, m := range memories {
		m.Clamp()
		if m.Version == 0 {
			m.Version = storage.SchemaVersion
		}
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, m.ID, m.OwnerID, string(payload), m.CreatedAt, m.Version); err != nil {
			return fmt.Errorf("Save: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Load returns all memories for an owner.
//
// Rows that fail to decode or carry a newer schema version are skipped.
func (c *Client) Load(ctx context.Context, ownerID string) ([]*storage.Memory, error) {
	query := `SELECT payload, schema_version FROM memories WHERE owner_id = ?`
	rows, err := c.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	defer rows.Close()

	var memories []*storage.Memory
	for rows.Next() {
		var payload string
		var version int
		if err := rows.Scan(&payload, &version); err != nil {
			continue
		}
		if version > storage.SchemaVersion {
			continue
		}
		var m storage.Memory
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			continue
		}
		memories = append(memories, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return memories, nil
}

// Cleanup applies the retention policy and returns the eviction count.
func (c *Client) Cleanup(ctx context.Context, ownerID string, policy *storage.RetentionPolicy) (int, error) {
	memories, err := c.Load(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("Cleanup: %w", err)
	}

	ids := policy.Plan(memories, time.Now())
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM memories WHERE owner_id = ? AND id IN (%s)`, placeholders)
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("Cleanup: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return int(deleted), nil
}

// RankedContext returns the owner's best-matching memories rendered as a
// deterministic text block for prompt injection.
func (c *Client) RankedContext(ctx context.Context, ownerID string, keywords []string, limit int) (string, error) {
	memories, err := c.Load(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("RankedContext: %w", err)
	}
	now := time.Now()
	scored := storage.Rank(memories, keywords, limit, storage.DefaultContextMinImportance, now)
	return storage.RenderContext(scored, now), nil
}

// SaveCortex fully overwrites the owner's consolidated profile.
func (c *Client) SaveCortex(ctx context.Context, cortex *storage.FrontalCortex) error {
	if cortex.Version == 0 {
		cortex.Version = storage.SchemaVersion
	}
	payload, err := json.Marshal(cortex)
	if err != nil {
		return fmt.Errorf("SaveCortex: %w", err)
	}

	query := `
		INSERT INTO cortices (owner_id, payload, updated_at, schema_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			schema_version = excluded.schema_version
	`
	if _, err := c.db.ExecContext(ctx, query, cortex.OwnerID, string(payload), time.Now(), cortex.Version); err != nil {
		return fmt.Errorf("SaveCortex: %w", err)
	}
	return nil
}

// LoadCortex returns the owner's profile, or nil if none exists or the
// stored record cannot be decoded.
func (c *Client) LoadCortex(ctx context.Context, ownerID string) (*storage.FrontalCortex, error) {
	query := `SELECT payload, schema_version FROM cortices WHERE owner_id = ?`
	var payload string
	var version int
	err := c.db.QueryRowContext(ctx, query, ownerID).Scan(&payload, &version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LoadCortex: %w", err)
	}
	if version > storage.SchemaVersion {
		return nil, nil
	}

	var cortex storage.FrontalCortex
	if err := json.Unmarshal([]byte(payload), &cortex); err != nil {
		return nil, nil
	}
	return &cortex, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
