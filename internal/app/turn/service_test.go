package turn_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/arcana-engine/internal/adapters/audit"
	"github.com/PabloGalante/arcana-engine/internal/adapters/llm"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/graph"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/memory"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/vector"
	"github.com/PabloGalante/arcana-engine/internal/app/agentloop"
	"github.com/PabloGalante/arcana-engine/internal/app/memoryctx"
	"github.com/PabloGalante/arcana-engine/internal/app/tools"
	"github.com/PabloGalante/arcana-engine/internal/app/turn"
	"github.com/PabloGalante/arcana-engine/internal/dice"
	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type fakeAdjudicator struct {
	verdict string
}

func (f *fakeAdjudicator) Adjudicate(context.Context, domain.SessionID, domain.CheckRules) (string, error) {
	return f.verdict, nil
}

type fixture struct {
	svc      *turn.Service
	narrator *llm.MockNarrator
	sessions *memory.SessionStore
	history  *memory.HistoryStore
	graph    *graph.Store
	auditDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	graphStore, err := graph.Open(filepath.Join(dir, "graph.db"), dice.NewSeeded(11))
	if err != nil {
		t.Fatalf("open graph: %v", err)
	}
	t.Cleanup(func() { _ = graphStore.Close() })

	err = graphStore.SeedTemplate(context.Background(), []domain.EntityNode{
		{ID: "item_potion", Label: "Item", Properties: map[string]any{"name": "Potion of Healing", "value": "5gp"}},
		{ID: "goblin_1", Label: "Character", Properties: map[string]any{"name": "Snaggle the Goblin", "hp_current": 7, "defense": 0}},
	}, nil)
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}

	vecStore, err := vector.Open(filepath.Join(dir, "vectors.db"))
	if err != nil {
		t.Fatalf("open vector: %v", err)
	}
	t.Cleanup(func() { _ = vecStore.Close() })

	auditDir := filepath.Join(dir, "logs")
	auditLog, err := audit.NewJSONLLog(auditDir)
	if err != nil {
		t.Fatalf("new audit log: %v", err)
	}

	narrator := llm.NewMockNarrator()
	embedder := llm.NewMockEmbedder()
	dispatcher := tools.NewDispatcher(graphStore, &fakeAdjudicator{
		verdict: "Rule Interpretation: roll 2d6 against the target's defense.",
	})
	loop := agentloop.New(narrator, dispatcher, 6)
	router := memoryctx.NewRouter(embedder, vecStore, graphStore)

	sessions := memory.NewSessionStore()
	history := memory.NewHistoryStore()

	svc := turn.NewService(sessions, history, graphStore, loop, router, embedder, vecStore, auditLog, time.Minute)
	return &fixture{svc: svc, narrator: narrator, sessions: sessions, history: history, graph: graphStore, auditDir: auditDir}
}

func (f *fixture) startSession(t *testing.T) *turn.StartSessionOutput {
	t.Helper()

	out, err := f.svc.StartSession(context.Background(), turn.StartSessionInput{PlayerName: "Aldric"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return out
}

func narration(text string) *domain.Message {
	return &domain.Message{Role: domain.RoleNarrator, Text: text}
}

func toolCall(name string, args map[string]any) *domain.Message {
	return &domain.Message{Role: domain.RoleNarrator, ToolCalls: []domain.ToolCall{{Name: name, Args: args}}}
}

func TestStartSessionSeedsNewWorld(t *testing.T) {
	f := newFixture(t)
	out := f.startSession(t)

	if out.Session.Round != 0 {
		t.Fatalf("fresh session must start at round 0, got %d", out.Session.Round)
	}
	if len(out.Scene.AvailableActions) != 1 || out.Scene.AvailableActions[0] != "Create Character" {
		t.Fatalf("opening scene actions wrong: %v", out.Scene.AvailableActions)
	}

	stats, err := f.graph.GetPlayerStats(context.Background(), out.Session.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Race != domain.UnknownField || stats.Class != domain.UnknownField {
		t.Fatalf("new character must be uncustomized: %+v", stats)
	}
	if stats.Gold != 50 || stats.HPMax != 20 {
		t.Fatalf("starting stats wrong: %+v", stats)
	}

	// The world template was cloned into the session namespace.
	res, err := f.graph.PurchaseItem(context.Background(), out.Session.ID, "healing potion")
	if err != nil || !res.Success {
		t.Fatalf("cloned world missing template item: %v %+v", err, res)
	}
}

func TestRoundsIncrementAcrossTurns(t *testing.T) {
	f := newFixture(t)
	out := f.startSession(t)

	f.narrator.Enqueue(narration("You look around."), narration("Still looking."))

	for want := 1; want <= 2; want++ {
		res, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
			SessionID: out.Session.ID, PlayerInput: "look around",
		})
		if err != nil {
			t.Fatalf("turn %d: %v", want, err)
		}
		if res.RoundNumber != want {
			t.Fatalf("expected round %d, got %d", want, res.RoundNumber)
		}
	}

	session, err := f.sessions.GetSession(context.Background(), out.Session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Round != 2 {
		t.Fatalf("round not persisted: %d", session.Round)
	}
}

func TestPhaseFlipsAfterCharacterCreation(t *testing.T) {
	f := newFixture(t)
	out := f.startSession(t)

	f.narrator.Enqueue(
		toolCall(tools.ToolCreateCharacter, map[string]any{"name": "Aldric", "race": "Elf", "char_class": "Ranger"}),
		narration("Aldric the Elf Ranger steps into the night."),
		narration("The road stretches ahead."),
	)

	res, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
		SessionID: out.Session.ID, PlayerInput: "I am Aldric, an elf ranger",
	})
	if err != nil {
		t.Fatalf("creation turn: %v", err)
	}
	if len(res.Scene.AvailableActions) != 0 {
		t.Fatalf("creation finished, Create Character should be gone: %v", res.Scene.AvailableActions)
	}
	if res.Stats == nil || !res.Stats.CreationComplete() {
		t.Fatalf("stats should reflect completed creation: %+v", res.Stats)
	}

	// First turn ran under creation instructions.
	firstPrompt := f.narrator.Calls[0][0].Text
	if !strings.Contains(firstPrompt, "CHARACTER CREATION") {
		t.Fatalf("first turn not in creation phase:\n%s", firstPrompt)
	}

	if _, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
		SessionID: out.Session.ID, PlayerInput: "I head out",
	}); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	// Second turn must run under in-game instructions (one-way gate).
	lastCall := f.narrator.Calls[len(f.narrator.Calls)-1]
	if !strings.Contains(lastCall[0].Text, "adventure is underway") {
		t.Fatalf("second turn not in game phase:\n%s", lastCall[0].Text)
	}
}

func TestRuleResultReachesAuditAndMetadata(t *testing.T) {
	f := newFixture(t)
	out := f.startSession(t)

	f.narrator.Enqueue(
		toolCall(tools.ToolCheckRules, map[string]any{"query": "attacking from hiding"}),
		narration("You strike from the shadows."),
	)

	res, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
		SessionID: out.Session.ID, PlayerInput: "I attack from hiding",
	})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if got, _ := res.Scene.Metadata["rule_result"].(string); !strings.Contains(got, "2d6") {
		t.Fatalf("rule result missing from metadata: %+v", res.Scene.Metadata)
	}

	file, err := os.Open(filepath.Join(f.auditDir, string(out.Session.ID)+".jsonl"))
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatal("audit file empty")
	}
	var rec domain.TurnRecord
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal audit line: %v", err)
	}
	if rec.RoundNumber != 1 || rec.PlayerInput != "I attack from hiding" {
		t.Fatalf("audit record wrong: %+v", rec)
	}
	if !strings.Contains(rec.RuleResult, "2d6") {
		t.Fatalf("audit missing rule result: %+v", rec)
	}
}

func TestPreviousNarrationGroundsNextTurn(t *testing.T) {
	f := newFixture(t)
	out := f.startSession(t)

	f.narrator.Enqueue(
		narration("A hooded figure watches you from the corner."),
		narration("The figure does not move."),
	)

	for _, input := range []string{"look around", "watch the figure"} {
		if _, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
			SessionID: out.Session.ID, PlayerInput: input,
		}); err != nil {
			t.Fatalf("turn %q: %v", input, err)
		}
	}

	// The second turn's system prompt must quote the first turn's scene
	// so check_rules can be grounded without the model re-typing it.
	lastCall := f.narrator.Calls[len(f.narrator.Calls)-1]
	prompt := lastCall[0].Text
	if !strings.Contains(prompt, "PREVIOUS SCENE") {
		t.Fatalf("previous scene block missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "A hooded figure watches you from the corner.") {
		t.Fatalf("previous narration not quoted:\n%s", prompt)
	}
}

func TestHistoryIsReplacedWithoutSystemMessages(t *testing.T) {
	f := newFixture(t)
	out := f.startSession(t)

	f.narrator.Enqueue(narration("The innkeeper nods."))

	if _, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
		SessionID: out.Session.ID, PlayerInput: "hello there",
	}); err != nil {
		t.Fatalf("turn: %v", err)
	}

	history, err := f.history.GetHistory(context.Background(), out.Session.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected opening + player + narrator, got %d messages", len(history))
	}
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			t.Fatalf("system message leaked into history: %+v", m)
		}
	}
	if history[1].Role != domain.RolePlayer || history[1].Text != "hello there" {
		t.Fatalf("player message not stored: %+v", history[1])
	}
	if history[2].Role != domain.RoleNarrator || history[2].Text != "The innkeeper nods." {
		t.Fatalf("narration not stored: %+v", history[2])
	}
}

func TestProcessTurnRejectsEmptyInput(t *testing.T) {
	f := newFixture(t)
	out := f.startSession(t)

	_, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
		SessionID: out.Session.ID, PlayerInput: "   ",
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestProcessTurnUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessTurn(context.Background(), turn.ProcessTurnInput{
		SessionID: "no-such-session", PlayerInput: "hello",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
