package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

// AddEntity inserts a world node. Labels outside the allow-list are
// rejected because they originate from model output.
func (s *Store) AddEntity(ctx context.Context, sessionID domain.SessionID, node domain.EntityNode) error {
	if !allowedLabels[node.Label] {
		return fmt.Errorf("label %q not allowed: %w", node.Label, domain.ErrInvalidState)
	}
	if node.ID == "" {
		return fmt.Errorf("entity id is required: %w", domain.ErrInvalidState)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add entity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, existing, err := s.getNode(ctx, tx, sessionID, node.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if err := s.insertNode(ctx, tx, sessionID, node.ID, node.Label, node.Properties); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		// Merge semantics: new properties win, old ones survive.
		for k, v := range node.Properties {
			existing[k] = v
		}
		if err := s.updateNodeProps(ctx, tx, sessionID, node.ID, existing); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddRelationship inserts a typed edge between two existing nodes.
func (s *Store) AddRelationship(ctx context.Context, sessionID domain.SessionID, edge domain.RelationshipEdge) error {
	if !allowedRelTypes[edge.Type] {
		return fmt.Errorf("relationship type %q not allowed: %w", edge.Type, domain.ErrInvalidState)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add relationship: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range []string{edge.SourceID, edge.TargetID} {
		if _, _, err := s.getNode(ctx, tx, sessionID, id); err != nil {
			return err
		}
	}
	if err := s.upsertEdge(ctx, tx, sessionID, edge.SourceID, edge.TargetID, edge.Type, edge.Properties); err != nil {
		return err
	}
	return tx.Commit()
}

// factLimit caps how many graph facts feed a single prompt.
const factLimit = 10

// GetRelatedFacts returns human-readable facts about the entity, one per
// edge touching it, newest first. Facts read as
// "Aldric OWNS Potion of Healing".
func (s *Store) GetRelatedFacts(ctx context.Context, sessionID domain.SessionID, entityID string) ([]string, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.source_id, e.type, e.target_id
		FROM edges e
		WHERE e.session_id = ? AND (e.source_id = ? OR e.target_id = ?)
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT ?`,
		string(sessionID), entityID, entityID, factLimit)
	if err != nil {
		return nil, fmt.Errorf("query related facts: %w", err)
	}
	defer rows.Close()

	type rawEdge struct{ source, relType, target string }
	var edges []rawEdge
	for rows.Next() {
		var e rawEdge
		if err := rows.Scan(&e.source, &e.relType, &e.target); err != nil {
			return nil, fmt.Errorf("scan fact edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names := map[string]string{}
	nodeName := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		name := id
		if _, props, err := s.getNode(ctx, s.db, sessionID, id); err == nil {
			name = propString(props, "name", id)
		}
		names[id] = name
		return name
	}

	facts := make([]string, 0, len(edges))
	for _, e := range edges {
		facts = append(facts, fmt.Sprintf("%s %s %s", nodeName(e.source), e.relType, nodeName(e.target)))
	}
	return facts, nil
}
