package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

// playerNodeID is the player's node id inside a session namespace. The
// namespace itself is the session id, so this is not a shared identity.
const playerNodeID = "player"

// defaultDefense applies when a target node has no defense property.
const defaultDefense = 10

// CreatePlayer upserts the player character node. Stats are written only
// when the node does not exist yet (merge-on-create); the name is always
// refreshed. Race and class start at the "Unknown" sentinel.
func (s *Store) CreatePlayer(ctx context.Context, sessionID domain.SessionID, name string, stats domain.PlayerStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create player: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, props, err := s.getNode(ctx, tx, sessionID, playerNodeID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		props = map[string]any{
			"name":       name,
			"race":       domain.UnknownField,
			"class":      domain.UnknownField,
			"hp_current": stats.HPCurrent,
			"hp_max":     stats.HPMax,
			"gold":       stats.Gold,
			"power":      stats.Power,
			"speed":      stats.Speed,
			"is_player":  true,
		}
		if err := s.insertNode(ctx, tx, sessionID, playerNodeID, "Character", props); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		props["name"] = name
		if err := s.updateNodeProps(ctx, tx, sessionID, playerNodeID, props); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPlayerStats returns a fresh snapshot of the player node.
func (s *Store) GetPlayerStats(ctx context.Context, sessionID domain.SessionID) (*domain.PlayerStats, error) {
	_, props, err := s.getNode(ctx, s.db, sessionID, playerNodeID)
	if err != nil {
		return nil, err
	}
	return statsFromProps(props), nil
}

func statsFromProps(props map[string]any) *domain.PlayerStats {
	return &domain.PlayerStats{
		Name:      propString(props, "name", "Traveler"),
		Race:      propString(props, "race", domain.UnknownField),
		Class:     propString(props, "class", domain.UnknownField),
		HPCurrent: propInt(props, "hp_current", 10),
		HPMax:     propInt(props, "hp_max", 10),
		Gold:      propInt(props, "gold", 0),
		Power:     propInt(props, "power", 10),
		Speed:     propInt(props, "speed", 10),
	}
}

// GetInventory lists items linked to the player by OWNS edges. The coarse
// type comes from the item's node label.
func (s *Store) GetInventory(ctx context.Context, sessionID domain.SessionID) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.label, n.properties
		FROM edges e JOIN nodes n
		  ON n.session_id = e.session_id AND n.id = e.target_id
		WHERE e.session_id = ? AND e.source_id = ? AND e.type = 'OWNS'
		ORDER BY e.created_at, n.id`,
		string(sessionID), playerNodeID)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var id, label, rawProps string
		if err := rows.Scan(&id, &label, &rawProps); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		props, err := decodeProps(rawProps)
		if err != nil {
			return nil, err
		}

		itemType := "Item"
		switch label {
		case "Weapon":
			itemType = "Weapon"
		case "Armor":
			itemType = "Armor"
		}

		items = append(items, domain.InventoryItem{
			ID:         id,
			Name:       propString(props, "name", id),
			Type:       itemType,
			Properties: props,
		})
	}
	return items, rows.Err()
}

// UpdatePlayerProfile sets the character-creation fields. Only name, race
// and class are touched; stats written at creation are preserved.
func (s *Store) UpdatePlayerProfile(ctx context.Context, sessionID domain.SessionID, name, race, class string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, props, err := s.getNode(ctx, tx, sessionID, playerNodeID)
	if err != nil {
		return err
	}

	if name != "" {
		props["name"] = name
	}
	if race != "" {
		props["race"] = race
	}
	if class != "" {
		props["class"] = class
	}

	if err := s.updateNodeProps(ctx, tx, sessionID, playerNodeID, props); err != nil {
		return err
	}
	return tx.Commit()
}

// PurchaseItem resolves query to a single item, checks funds and
// atomically deducts gold while creating the OWNS edge.
func (s *Store) PurchaseItem(ctx context.Context, sessionID domain.SessionID, query string) (*domain.ActionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	item, err := s.resolveItem(ctx, tx, sessionID, query, false)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ActionResult{
			Success: false,
			Message: fmt.Sprintf("No item matches %q.", query),
			Err:     domain.ErrNotFound,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	_, playerProps, err := s.getNode(ctx, tx, sessionID, playerNodeID)
	if err != nil {
		return nil, err
	}
	gold := propInt(playerProps, "gold", 0)
	cost := parseValue(propString(item.props, "value", ""))

	if gold < cost {
		return &domain.ActionResult{
			Success: false,
			Message: fmt.Sprintf("Insufficient funds. Cost: %d, Bal: %d", cost, gold),
			Err:     domain.ErrInsufficientResource,
		}, nil
	}

	playerProps["gold"] = gold - cost
	if err := s.updateNodeProps(ctx, tx, sessionID, playerNodeID, playerProps); err != nil {
		return nil, err
	}
	if err := s.upsertEdge(ctx, tx, sessionID, playerNodeID, item.id, "OWNS", map[string]any{
		"acquired_at": s.now().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}

	return &domain.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Purchased %s for %dgp", item.name, cost),
		Payload: map[string]any{"item_id": item.id, "cost": cost, "new_balance": gold - cost},
	}, nil
}

// SellItem resolves query among owned items, deletes the OWNS edge and
// credits half the parsed value.
func (s *Store) SellItem(ctx context.Context, sessionID domain.SessionID, query string) (*domain.ActionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sale: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	item, err := s.resolveItem(ctx, tx, sessionID, query, true)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ActionResult{
			Success: false,
			Message: "You don't own this item.",
			Err:     domain.ErrNotFound,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	_, playerProps, err := s.getNode(ctx, tx, sessionID, playerNodeID)
	if err != nil {
		return nil, err
	}
	gold := propInt(playerProps, "gold", 0)
	sellValue := parseValue(propString(item.props, "value", "")) / 2

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM edges
		WHERE session_id = ? AND source_id = ? AND target_id = ? AND type = 'OWNS'`,
		string(sessionID), playerNodeID, item.id); err != nil {
		return nil, fmt.Errorf("delete owns edge: %w", err)
	}

	playerProps["gold"] = gold + sellValue
	if err := s.updateNodeProps(ctx, tx, sessionID, playerNodeID, playerProps); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}

	return &domain.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Sold %s for %dgp", item.name, sellValue),
		Payload: map[string]any{"item_id": item.id, "gold_gained": sellValue, "new_balance": gold + sellValue},
	}, nil
}

// Attack rolls 2d6 against the target's defense. On hit, damage is
// 1d8 + floor(max(0, power-10)/2) applied to the target's hp_current
// (deliberately not clamped at zero). Every attempt appends an ATTACKED
// edge; failed preconditions mutate nothing.
func (s *Store) Attack(ctx context.Context, sessionID domain.SessionID, targetID string) (*domain.ActionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attack: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, targetProps, err := s.getNode(ctx, tx, sessionID, targetID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ActionResult{
			Success: false,
			Message: fmt.Sprintf("Target %q not found.", targetID),
			Err:     domain.ErrNotFound,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	targetHP := propInt(targetProps, "hp_current", 0)
	if targetHP <= 0 {
		return &domain.ActionResult{
			Success: false,
			Message: fmt.Sprintf("%s is already defeated.", propString(targetProps, "name", targetID)),
			Err:     domain.ErrInvalidState,
		}, nil
	}

	_, playerProps, err := s.getNode(ctx, tx, sessionID, playerNodeID)
	if err != nil {
		return nil, err
	}
	power := propInt(playerProps, "power", 10)
	defense := propInt(targetProps, "defense", defaultDefense)

	roll := s.roller.Sum(2, 6)
	hit := roll >= defense

	damage := 0
	if hit {
		bonus := (max(0, power-10)) / 2
		damage = s.roller.Sum(1, 8) + bonus
		targetHP -= damage
		targetProps["hp_current"] = targetHP
		if err := s.updateNodeProps(ctx, tx, sessionID, targetID, targetProps); err != nil {
			return nil, err
		}
	}

	if err := s.insertEdge(ctx, tx, sessionID, playerNodeID, targetID, "ATTACKED", map[string]any{
		"roll":      roll,
		"damage":    damage,
		"hit":       hit,
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attack: %w", err)
	}

	targetName := propString(targetProps, "name", targetID)
	msg := fmt.Sprintf("You miss %s (rolled %d vs defense %d).", targetName, roll, defense)
	if hit {
		msg = fmt.Sprintf("You hit %s for %d damage (rolled %d vs defense %d).", targetName, damage, roll, defense)
	}

	return &domain.ActionResult{
		Success: true,
		Message: msg,
		Payload: map[string]any{
			"hit":       hit,
			"roll":      roll,
			"damage":    damage,
			"target_hp": targetHP,
		},
	}, nil
}

// --- low-level node/edge helpers --- //

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getNode(ctx context.Context, q queryer, sessionID domain.SessionID, id string) (string, map[string]any, error) {
	var label, rawProps string
	err := q.QueryRowContext(ctx,
		`SELECT label, properties FROM nodes WHERE session_id = ? AND id = ?`,
		string(sessionID), id).Scan(&label, &rawProps)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("get node %s: %w", id, err)
	}
	props, err := decodeProps(rawProps)
	if err != nil {
		return "", nil, err
	}
	return label, props, nil
}

func (s *Store) insertNode(ctx context.Context, tx *sql.Tx, sessionID domain.SessionID, id, label string, props map[string]any) error {
	raw, err := encodeProps(props)
	if err != nil {
		return err
	}
	now := toMillis(s.now())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (session_id, id, label, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(sessionID), id, label, raw, now, now); err != nil {
		return fmt.Errorf("insert node %s: %w", id, err)
	}
	return nil
}

func (s *Store) updateNodeProps(ctx context.Context, tx *sql.Tx, sessionID domain.SessionID, id string, props map[string]any) error {
	raw, err := encodeProps(props)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE nodes SET properties = ?, updated_at = ? WHERE session_id = ? AND id = ?`,
		raw, toMillis(s.now()), string(sessionID), id); err != nil {
		return fmt.Errorf("update node %s: %w", id, err)
	}
	return nil
}

func (s *Store) insertEdge(ctx context.Context, tx *sql.Tx, sessionID domain.SessionID, source, target, relType string, props map[string]any) error {
	raw, err := encodeProps(props)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO edges (session_id, source_id, target_id, type, properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(sessionID), source, target, relType, raw, toMillis(s.now())); err != nil {
		return fmt.Errorf("insert %s edge: %w", relType, err)
	}
	return nil
}

// upsertEdge merges on (source, target, type): an existing edge gets its
// properties refreshed instead of a duplicate row.
func (s *Store) upsertEdge(ctx context.Context, tx *sql.Tx, sessionID domain.SessionID, source, target, relType string, props map[string]any) error {
	var edgeID int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM edges
		WHERE session_id = ? AND source_id = ? AND target_id = ? AND type = ?`,
		string(sessionID), source, target, relType).Scan(&edgeID)
	if errors.Is(err, sql.ErrNoRows) {
		return s.insertEdge(ctx, tx, sessionID, source, target, relType, props)
	}
	if err != nil {
		return fmt.Errorf("lookup %s edge: %w", relType, err)
	}

	raw, err := encodeProps(props)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE edges SET properties = ? WHERE id = ?`, raw, edgeID); err != nil {
		return fmt.Errorf("update %s edge: %w", relType, err)
	}
	return nil
}
