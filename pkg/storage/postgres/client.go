// Package postgres provides a PostgreSQL implementation of the memory store.
//
// Memory records are stored as JSONB payloads; ranking happens in memory
// after loading the owner's rows so all backends share one scoring path.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/lib/pq"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// Client implements storage.Store using PostgreSQL as the backend.
type Client struct {
	db   *sql.DB
	node *snowflake.Node
}

// Config contains configuration for creating a PostgreSQL store.
type Config struct {
	// Host is the PostgreSQL server hostname.
	Host string

	// Port is the PostgreSQL server port.
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string

	// SSLMode is the SSL mode (disable, require, verify-ca, verify-full).
	SSLMode string
}

// NewClient creates a new PostgreSQL store.
//
// Parameters:
//   - cfg: Configuration containing connection parameters
//
// Returns:
//   - *Client: The PostgreSQL store instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{db: db, node: node}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
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
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			schema_version INTEGER NOT NULL
		)
	`
	if _, err := c.db.ExecContext(ctx, cortexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Save persists the given memories as upserts keyed by id.
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
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			schema_version = EXCLUDED.schema_version
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

// Load returns all memories for an owner, skipping undecodable rows and
// rows written by a newer schema version.
func (c *Client) Load(ctx context.Context, ownerID string) ([]*storage.Memory, error) {
	query := `SELECT payload, schema_version FROM memories WHERE owner_id = $1`
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

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, ownerID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM memories WHERE owner_id = $1 AND id IN (%s)`,
		strings.Join(placeholders, ","))
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
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at,
			schema_version = EXCLUDED.schema_version
	`
	if _, err := c.db.ExecContext(ctx, query, cortex.OwnerID, string(payload), time.Now(), cortex.Version); err != nil {
		return fmt.Errorf("SaveCortex: %w", err)
	}
	return nil
}

// LoadCortex returns the owner's profile, or nil if none exists or the
// stored record cannot be decoded.
func (c *Client) LoadCortex(ctx context.Context, ownerID string) (*storage.FrontalCortex, error) {
	query := `SELECT payload, schema_version FROM cortices WHERE owner_id = $1`
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
