package graph

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

// CloneWorldTemplate copies every node and edge from the reserved template
// namespace into the new session's namespace. Each session then owns a
// private copy of the world and mutations never leak across sessions.
func (s *Store) CloneWorldTemplate(ctx context.Context, sessionID domain.SessionID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template clone: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(s.now())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (session_id, id, label, properties, created_at, updated_at)
		SELECT ?, id, label, properties, ?, ?
		FROM nodes WHERE session_id = ?`,
		string(sessionID), now, now, TemplateSession); err != nil {
		return fmt.Errorf("clone template nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO edges (session_id, source_id, target_id, type, properties, created_at)
		SELECT ?, source_id, target_id, type, properties, ?
		FROM edges WHERE session_id = ?`,
		string(sessionID), now, TemplateSession); err != nil {
		return fmt.Errorf("clone template edges: %w", err)
	}
	return tx.Commit()
}

// SeedTemplate replaces the world template with the provided nodes and
// edges. Used by the seeding command and by tests; labels and relationship
// types go through the same allow-list as runtime writes.
func (s *Store) SeedTemplate(ctx context.Context, nodes []domain.EntityNode, edges []domain.RelationshipEdge) error {
	for _, n := range nodes {
		if !allowedLabels[n.Label] {
			return fmt.Errorf("template label %q not allowed: %w", n.Label, domain.ErrInvalidState)
		}
	}
	for _, e := range edges {
		if !allowedRelTypes[e.Type] {
			return fmt.Errorf("template relationship %q not allowed: %w", e.Type, domain.ErrInvalidState)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE session_id = ?`, TemplateSession); err != nil {
		return fmt.Errorf("clear template nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE session_id = ?`, TemplateSession); err != nil {
		return fmt.Errorf("clear template edges: %w", err)
	}

	for _, n := range nodes {
		if err := s.insertNode(ctx, tx, TemplateSession, n.ID, n.Label, n.Properties); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := s.insertEdge(ctx, tx, TemplateSession, e.SourceID, e.TargetID, e.Type, e.Properties); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TemplateIsEmpty reports whether the template namespace has been seeded.
func (s *Store) TemplateIsEmpty(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE session_id = ?`, TemplateSession).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("count template nodes: %w", err)
	}
	return count == 0, nil
}
