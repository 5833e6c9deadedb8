package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

// resolvedItem is the internal view of a node matched by resolveItem.
type resolvedItem struct {
	id    string
	name  string
	props map[string]any
}

// resolveItem maps a free-text query ("healing potion", "item_rusty_sword")
// to a single item node. Resolution order:
//
//  1. exact node id match,
//  2. AND-match of lowercase query tokens longer than 3 characters against
//     the lowercase item name,
//  3. the full lowercase query as a substring when no token qualifies.
//
// Ties break toward the shortest item name, which favors "Potion" over
// "Potion of Greater Healing" for vague queries. ownedOnly restricts the
// candidate pool to items the player has an OWNS edge to.
func (s *Store) resolveItem(ctx context.Context, tx *sql.Tx, sessionID domain.SessionID, query string, ownedOnly bool) (*resolvedItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty item query: %w", domain.ErrNotFound)
	}

	candidates, err := s.itemCandidates(ctx, tx, sessionID, ownedOnly)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if c.id == query {
			return c, nil
		}
	}

	lowered := strings.ToLower(query)
	var tokens []string
	for _, tok := range strings.Fields(lowered) {
		if len(tok) > 3 {
			tokens = append(tokens, tok)
		}
	}

	var best *resolvedItem
	for _, c := range candidates {
		name := strings.ToLower(c.name)

		matched := true
		if len(tokens) > 0 {
			for _, tok := range tokens {
				if !strings.Contains(name, tok) {
					matched = false
					break
				}
			}
		} else {
			matched = strings.Contains(name, lowered)
		}
		if !matched {
			continue
		}
		if best == nil || len(c.name) < len(best.name) {
			best = c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no item matches %q: %w", query, domain.ErrNotFound)
	}
	return best, nil
}

func (s *Store) itemCandidates(ctx context.Context, tx *sql.Tx, sessionID domain.SessionID, ownedOnly bool) ([]*resolvedItem, error) {
	q := `
		SELECT id, properties FROM nodes
		WHERE session_id = ? AND label IN ('Item', 'Weapon', 'Armor')
		ORDER BY id`
	if ownedOnly {
		q = `
		SELECT n.id, n.properties
		FROM edges e JOIN nodes n
		  ON n.session_id = e.session_id AND n.id = e.target_id
		WHERE e.session_id = ? AND e.source_id = 'player' AND e.type = 'OWNS'
		ORDER BY n.id`
	}

	rows, err := tx.QueryContext(ctx, q, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query item candidates: %w", err)
	}
	defer rows.Close()

	var out []*resolvedItem
	for rows.Next() {
		var id, rawProps string
		if err := rows.Scan(&id, &rawProps); err != nil {
			return nil, fmt.Errorf("scan item candidate: %w", err)
		}
		props, err := decodeProps(rawProps)
		if err != nil {
			return nil, err
		}
		out = append(out, &resolvedItem{id: id, name: propString(props, "name", id), props: props})
	}
	return out, rows.Err()
}

// parseValue extracts the leading digit run from a value string such as
// "5gp" or "120 gold". Anything without a leading number costs the default
// of 10.
func parseValue(value string) int {
	value = strings.TrimSpace(value)

	n := 0
	seen := false
	for _, r := range value {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		seen = true
	}
	if !seen {
		return 10
	}
	return n
}
