// Package vector stores embedded rule documents and episodic memories in
// SQLite and ranks them by cosine similarity in process. The corpora are
// small (a rulebook and a per-session memory stream), so a brute-force
// scan over the candidate rows is cheaper than running a vector database.
package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
    id           TEXT PRIMARY KEY,
    kind         TEXT NOT NULL,
    name         TEXT NOT NULL,
    chapter      TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    mechanics    TEXT NOT NULL DEFAULT '[]',
    premise      TEXT NOT NULL DEFAULT '',
    implication  TEXT NOT NULL DEFAULT '',
    is_exception INTEGER NOT NULL DEFAULT 0,
    embedding    BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    speaker    TEXT NOT NULL DEFAULT '',
    event_type TEXT NOT NULL DEFAULT '',
    summary    TEXT NOT NULL DEFAULT '',
    raw_text   TEXT NOT NULL DEFAULT '',
    embedding  BLOB NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id, created_at);
`

// Store backs both the rule index and the episodic memory store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and migrates) the vector store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("vector store path is required")
	}

	// Pragmas in modernc's _pragma form; the mattn-style keys are
	// silently ignored by this driver.
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"
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
		return nil, fmt.Errorf("apply vector schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertRule writes one rule document, replacing any previous version.
func (s *Store) UpsertRule(ctx context.Context, doc *domain.RuleDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("rule id is required: %w", domain.ErrInvalidState)
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("rule %s has no embedding: %w", doc.ID, domain.ErrInvalidState)
	}

	mechanics, err := json.Marshal(doc.Mechanics)
	if err != nil {
		return fmt.Errorf("marshal mechanics for %s: %w", doc.ID, err)
	}

	isException := 0
	if doc.IsException {
		isException = 1
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (id, kind, name, chapter, description, mechanics, premise, implication, is_exception, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    kind = excluded.kind, name = excluded.name, chapter = excluded.chapter,
		    description = excluded.description, mechanics = excluded.mechanics,
		    premise = excluded.premise, implication = excluded.implication,
		    is_exception = excluded.is_exception, embedding = excluded.embedding`,
		doc.ID, string(doc.Kind), doc.Name, doc.Chapter, doc.Description,
		string(mechanics), doc.Premise, doc.Implication, isException,
		encodeEmbedding(doc.Embedding)); err != nil {
		return fmt.Errorf("upsert rule %s: %w", doc.ID, err)
	}
	return nil
}

// Search returns the topK rule documents most similar to the query
// embedding, best first.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]*domain.RuleDocument, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, chapter, description, mechanics, premise, implication, is_exception, embedding
		FROM rules`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	type scored struct {
		doc   *domain.RuleDocument
		score float64
	}
	var candidates []scored

	for rows.Next() {
		var (
			doc          domain.RuleDocument
			kind         string
			rawMechanics string
			isException  int
			blob         []byte
		)
		if err := rows.Scan(&doc.ID, &kind, &doc.Name, &doc.Chapter, &doc.Description,
			&rawMechanics, &doc.Premise, &doc.Implication, &isException, &blob); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		doc.Kind = domain.RuleDocKind(kind)
		doc.IsException = isException != 0
		if err := json.Unmarshal([]byte(rawMechanics), &doc.Mechanics); err != nil {
			return nil, fmt.Errorf("unmarshal mechanics for %s: %w", doc.ID, err)
		}
		doc.Embedding = decodeEmbedding(blob)

		candidates = append(candidates, scored{doc: &doc, score: Cosine(embedding, doc.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]*domain.RuleDocument, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.doc)
	}
	return out, nil
}

// AddMemory persists one episodic memory record.
func (s *Store) AddMemory(ctx context.Context, rec *domain.MemoryRecord) error {
	if rec.ID == "" || rec.SessionID == "" {
		return fmt.Errorf("memory id and session id are required: %w", domain.ErrInvalidState)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, session_id, speaker, event_type, summary, raw_text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.SessionID), rec.Speaker, rec.EventType, rec.Summary, rec.RawText,
		encodeEmbedding(rec.Embedding), createdAt.UTC().UnixMilli()); err != nil {
		return fmt.Errorf("insert memory %s: %w", rec.ID, err)
	}
	return nil
}

// SearchMemories returns the session's memories most similar to the query
// embedding, best first. Memories from other sessions are never candidates.
func (s *Store) SearchMemories(ctx context.Context, sessionID domain.SessionID, embedding []float32, limit int) ([]*domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, speaker, event_type, summary, raw_text, embedding, created_at
		FROM memories WHERE session_id = ?`,
		string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	type scored struct {
		rec   *domain.MemoryRecord
		score float64
	}
	var candidates []scored

	for rows.Next() {
		var (
			rec       domain.MemoryRecord
			sid       string
			blob      []byte
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &sid, &rec.Speaker, &rec.EventType, &rec.Summary,
			&rec.RawText, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		rec.SessionID = domain.SessionID(sid)
		rec.Embedding = decodeEmbedding(blob)
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()

		candidates = append(candidates, scored{rec: &rec, score: Cosine(embedding, rec.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*domain.MemoryRecord, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.rec)
	}
	return out, nil
}

// Cosine returns the cosine similarity of two vectors, or 0 when either
// is empty, zero-length in norm, or the dimensions disagree.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
