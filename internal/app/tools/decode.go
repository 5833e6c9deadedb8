package tools

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

// DecodeAction maps a raw tool call onto the typed action union. Unknown
// tool names and missing required arguments are decode errors; the
// dispatcher turns them into failure results the narrator can read.
func DecodeAction(call domain.ToolCall) (domain.Action, error) {
	args := call.Args

	switch call.Name {
	case ToolBuyItem:
		q := getString(args, "item_id")
		if q == "" {
			return nil, fmt.Errorf("%s: item_id is required", call.Name)
		}
		return domain.BuyItem{ItemQuery: q}, nil

	case ToolSellItem:
		q := getString(args, "item_id")
		if q == "" {
			return nil, fmt.Errorf("%s: item_id is required", call.Name)
		}
		return domain.SellItem{ItemQuery: q}, nil

	case ToolAttack:
		target := getString(args, "target_id")
		if target == "" {
			return nil, fmt.Errorf("%s: target_id is required", call.Name)
		}
		return domain.AttackTarget{TargetID: target}, nil

	case ToolCreateCharacter:
		a := domain.CreateCharacter{
			Name:  getString(args, "name"),
			Race:  getString(args, "race"),
			Class: getString(args, "char_class"),
		}
		if a.Name == "" || a.Race == "" || a.Class == "" {
			return nil, fmt.Errorf("%s: name, race and char_class are required", call.Name)
		}
		return a, nil

	case ToolCheckRules:
		a := domain.CheckRules{
			Query:             getString(args, "query"),
			Reason:            getString(args, "reason"),
			PlayerInput:       getString(args, "player_input"),
			PreviousNarrative: getString(args, "previous_narrative_text"),
			MemoryContext:     getString(args, "memory_context"),
		}
		if strings.TrimSpace(a.Query) == "" {
			return nil, fmt.Errorf("%s: query is required", call.Name)
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
