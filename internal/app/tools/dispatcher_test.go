package tools_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/graph"
	"github.com/PabloGalante/arcana-engine/internal/app/tools"
	"github.com/PabloGalante/arcana-engine/internal/dice"
	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type fakeAdjudicator struct {
	lastSession domain.SessionID
	lastQuery   string
	verdict     string
}

func (f *fakeAdjudicator) Adjudicate(_ context.Context, sessionID domain.SessionID, req domain.CheckRules) (string, error) {
	f.lastSession = sessionID
	f.lastQuery = req.Query
	return f.verdict, nil
}

func newFixture(t *testing.T) (*tools.Dispatcher, *graph.Store, *fakeAdjudicator) {
	t.Helper()

	store, err := graph.Open(filepath.Join(t.TempDir(), "arcana.db"), dice.NewSeeded(7))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	adj := &fakeAdjudicator{verdict: "IF the attacker is hidden THEN the defender has Disadvantage."}
	return tools.NewDispatcher(store, adj), store, adj
}

const session = domain.SessionID("sess-tools")

func seedSession(t *testing.T, store *graph.Store) {
	t.Helper()

	ctx := context.Background()
	err := store.CreatePlayer(ctx, session, "Aldric", domain.PlayerStats{
		HPCurrent: 20, HPMax: 20, Gold: 50, Power: 12, Speed: 10,
	})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	err = store.AddEntity(ctx, session, domain.EntityNode{
		ID: "item_potion", Label: "Item",
		Properties: map[string]any{"name": "Potion of Healing", "value": "5gp"},
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
}

func TestDispatchBuyItem(t *testing.T) {
	d, store, _ := newFixture(t)
	seedSession(t, store)

	out, err := d.Dispatch(context.Background(), tools.ToolContext{SessionID: session}, domain.ToolCall{
		Name: tools.ToolBuyItem,
		Args: map[string]any{"item_id": "healing potion"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out["success"] != true {
		t.Fatalf("expected purchase success, got %+v", out)
	}
	if out["new_balance"] != 45 {
		t.Fatalf("expected balance 45, got %v", out["new_balance"])
	}
}

func TestDispatchCreateCharacter(t *testing.T) {
	d, store, _ := newFixture(t)
	seedSession(t, store)

	out, err := d.Dispatch(context.Background(), tools.ToolContext{SessionID: session}, domain.ToolCall{
		Name: tools.ToolCreateCharacter,
		Args: map[string]any{"name": "Aldric", "race": "Elf", "char_class": "Ranger"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out["success"] != true {
		t.Fatalf("expected success, got %+v", out)
	}

	stats, err := store.GetPlayerStats(context.Background(), session)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !stats.CreationComplete() {
		t.Fatalf("creation not applied: %+v", stats)
	}
}

func TestDispatchCheckRulesIgnoresSpoofedSession(t *testing.T) {
	d, _, adj := newFixture(t)

	out, err := d.Dispatch(context.Background(), tools.ToolContext{SessionID: session}, domain.ToolCall{
		Name: tools.ToolCheckRules,
		Args: map[string]any{
			"session_id": "someone-elses-session",
			"query":      "attacking while invisible",
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if adj.lastSession != session {
		t.Fatalf("adjudicator saw session %q, want %q", adj.lastSession, session)
	}
	if out["rule_result"] != adj.verdict {
		t.Fatalf("verdict not surfaced: %+v", out)
	}
}

func TestDispatchRejectsBadCalls(t *testing.T) {
	d, _, _ := newFixture(t)
	ctx := context.Background()

	cases := []domain.ToolCall{
		{Name: "teleport", Args: map[string]any{}},
		{Name: tools.ToolBuyItem, Args: map[string]any{}},
		{Name: tools.ToolCheckRules, Args: map[string]any{"query": "   "}},
		{Name: tools.ToolCreateCharacter, Args: map[string]any{"name": "Aldric"}},
	}
	for _, call := range cases {
		out, err := d.Dispatch(ctx, tools.ToolContext{SessionID: session}, call)
		if err != nil {
			t.Fatalf("%s: decode failures must not error: %v", call.Name, err)
		}
		if out["success"] != false {
			t.Fatalf("%s: expected failure payload, got %+v", call.Name, out)
		}
	}
}
