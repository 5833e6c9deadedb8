package tools

import (
	"context"
	"fmt"

	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/observability"
)

// ToolContext brings metadata of the call to the tool. SessionID is
// authoritative; a session_id in the model's arguments is ignored.
type ToolContext struct {
	SessionID domain.SessionID
	RequestID string
}

// Adjudicator runs the rule retrieval and adjudication pipeline on
// behalf of the check_rules tool.
type Adjudicator interface {
	Adjudicate(ctx context.Context, sessionID domain.SessionID, req domain.CheckRules) (string, error)
}

// Dispatcher executes decoded actions against the game state store.
type Dispatcher struct {
	state       domain.GameStateStore
	adjudicator Adjudicator
}

func NewDispatcher(state domain.GameStateStore, adjudicator Adjudicator) *Dispatcher {
	return &Dispatcher{state: state, adjudicator: adjudicator}
}

// Dispatch runs one tool call and returns the payload handed back to the
// narrator as the function response. Game-level failures (bad arguments,
// unknown tool, not enough gold) come back as success=false payloads so
// the narrator can verbalize them; the error return is reserved for
// storage and upstream faults.
func (d *Dispatcher) Dispatch(ctx context.Context, tctx ToolContext, call domain.ToolCall) (map[string]any, error) {
	log := observability.ForSession(ctx, string(tctx.SessionID)).With("tool", call.Name)

	action, err := DecodeAction(call)
	if err != nil {
		log.Warn("tool call rejected", "error", err)
		return map[string]any{"success": false, "message": err.Error()}, nil
	}

	switch a := action.(type) {
	case domain.BuyItem:
		res, err := d.state.PurchaseItem(ctx, tctx.SessionID, a.ItemQuery)
		if err != nil {
			return nil, fmt.Errorf("buy_item: %w", err)
		}
		return resultToMap(res), nil

	case domain.SellItem:
		res, err := d.state.SellItem(ctx, tctx.SessionID, a.ItemQuery)
		if err != nil {
			return nil, fmt.Errorf("sell_item: %w", err)
		}
		return resultToMap(res), nil

	case domain.AttackTarget:
		res, err := d.state.Attack(ctx, tctx.SessionID, a.TargetID)
		if err != nil {
			return nil, fmt.Errorf("attack: %w", err)
		}
		return resultToMap(res), nil

	case domain.CreateCharacter:
		if err := d.state.UpdatePlayerProfile(ctx, tctx.SessionID, a.Name, a.Race, a.Class); err != nil {
			return nil, fmt.Errorf("create_character: %w", err)
		}
		log.Info("character created", "race", a.Race, "class", a.Class)
		return map[string]any{
			"success": true,
			"message": fmt.Sprintf("Character created: %s the %s %s.", a.Name, a.Race, a.Class),
		}, nil

	case domain.CheckRules:
		verdict, err := d.adjudicator.Adjudicate(ctx, tctx.SessionID, a)
		if err != nil {
			return nil, fmt.Errorf("check_rules: %w", err)
		}
		return map[string]any{"success": true, "rule_result": verdict}, nil

	default:
		return map[string]any{"success": false, "message": fmt.Sprintf("unhandled action %T", action)}, nil
	}
}

func resultToMap(res *domain.ActionResult) map[string]any {
	out := map[string]any{
		"success": res.Success,
		"message": res.Message,
	}
	for k, v := range res.Payload {
		out[k] = v
	}
	return out
}
