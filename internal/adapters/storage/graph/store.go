// Package graph provides the SQLite-backed property graph holding player,
// item, combat and world-fact state. Nodes and edges carry JSON property
// bags and every row is keyed by session id, so concurrent sessions never
// collide on a character or inventory.
package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/arcana-engine/internal/dice"
)

// TemplateSession is the reserved namespace holding the externally seeded
// world template. StartSession clones it into a fresh session namespace.
const TemplateSession = "__template__"

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
    session_id TEXT NOT NULL,
    id         TEXT NOT NULL,
    label      TEXT NOT NULL,
    properties TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, id)
);

CREATE TABLE IF NOT EXISTS edges (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    source_id  TEXT NOT NULL,
    target_id  TEXT NOT NULL,
    type       TEXT NOT NULL,
    properties TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_session_label ON nodes(session_id, label);
CREATE INDEX IF NOT EXISTS idx_edges_session_source ON edges(session_id, source_id, type);
CREATE INDEX IF NOT EXISTS idx_edges_session_target ON edges(session_id, target_id, type);
`

// Labels and relationship types accepted by the generic AddEntity /
// AddRelationship operations. These strings originate from LLM output, so
// anything outside the allow-list is rejected before it reaches a query.
var allowedLabels = map[string]bool{
	"Character": true,
	"Location":  true,
	"Item":      true,
	"Weapon":    true,
	"Armor":     true,
	"Faction":   true,
	"Quest":     true,
}

var allowedRelTypes = map[string]bool{
	"OWNS":       true,
	"ATTACKED":   true,
	"LOCATED_IN": true,
	"CONTAINS":   true,
	"KNOWS":      true,
	"MEMBER_OF":  true,
	"ON_QUEST":   true,
}

// Store is the SQLite-backed game state store.
type Store struct {
	db     *sql.DB
	roller *dice.Roller
	now    func() time.Time
}

// Open opens (and migrates) the graph store at the provided path. A nil
// roller gets a time-seeded default; tests pass a seeded one.
func Open(path string, roller *dice.Roller) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("graph store path is required")
	}

	// modernc ignores mattn-style DSN keys; pragmas must use the _pragma
	// form and apply per connection. _txlock=immediate makes write
	// transactions take the lock up front, so concurrent sessions queue
	// on the busy timeout instead of failing mid-transaction.
	dsn := filepath.Clean(path) + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply graph schema: %w", err)
	}

	if roller == nil {
		roller = dice.New()
	}

	return &Store{db: db, roller: roller, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func encodeProps(props map[string]any) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(raw), nil
}

func decodeProps(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	props := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return props, nil
}

// propInt reads a numeric property that may have round-tripped through
// JSON as float64.
func propInt(props map[string]any, key string, def int) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func propString(props map[string]any, key, def string) string {
	if v, ok := props[key].(string); ok && v != "" {
		return v
	}
	return def
}
