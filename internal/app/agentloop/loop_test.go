package agentloop_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/arcana-engine/internal/adapters/llm"
	"github.com/PabloGalante/arcana-engine/internal/app/agentloop"
	"github.com/PabloGalante/arcana-engine/internal/app/tools"
	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type recordingRunner struct {
	calls []domain.ToolCall
	err   error
}

func (r *recordingRunner) Dispatch(_ context.Context, _ tools.ToolContext, call domain.ToolCall) (map[string]any, error) {
	r.calls = append(r.calls, call)
	if r.err != nil {
		return nil, r.err
	}
	return map[string]any{"success": true, "message": "ok"}, nil
}

func playerTurn(text string) []*domain.Message {
	return []*domain.Message{
		{Role: domain.RoleSystem, Text: "You are the Dungeon Master."},
		{Role: domain.RolePlayer, Text: text},
	}
}

func TestLoopExecutesToolCallsInOrder(t *testing.T) {
	narrator := llm.NewMockNarrator(
		&domain.Message{
			Role: domain.RoleNarrator,
			ToolCalls: []domain.ToolCall{
				{Name: tools.ToolBuyItem, Args: map[string]any{"item_id": "potion"}},
				{Name: tools.ToolAttack, Args: map[string]any{"target_id": "goblin_1"}},
			},
		},
		&domain.Message{Role: domain.RoleNarrator, Text: "You quaff the potion and strike."},
	)
	runner := &recordingRunner{}
	loop := agentloop.New(narrator, runner, 6)

	transcript, err := loop.Run(context.Background(), tools.ToolContext{SessionID: "sess-1"}, playerTurn("buy a potion and attack"), tools.GameToolSchemas())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 tool executions, got %d", len(runner.calls))
	}
	if runner.calls[0].Name != tools.ToolBuyItem || runner.calls[1].Name != tools.ToolAttack {
		t.Fatalf("tool calls out of order: %+v", runner.calls)
	}

	// system, player, narrator(tool calls), tool, tool, narrator(text)
	if len(transcript) != 6 {
		t.Fatalf("expected 6 transcript messages, got %d", len(transcript))
	}
	last := transcript[len(transcript)-1]
	if last.Role != domain.RoleNarrator || last.Text == "" || last.WantsTools() {
		t.Fatalf("final message is not plain narration: %+v", last)
	}
	for _, m := range transcript[3:5] {
		if m.Role != domain.RoleTool || m.ToolResult["success"] != true {
			t.Fatalf("tool result message malformed: %+v", m)
		}
	}
}

func TestLoopForcesNarrationAtRoundCap(t *testing.T) {
	toolHungry := func() *domain.Message {
		return &domain.Message{
			Role:      domain.RoleNarrator,
			ToolCalls: []domain.ToolCall{{Name: tools.ToolAttack, Args: map[string]any{"target_id": "goblin_1"}}},
		}
	}
	narrator := llm.NewMockNarrator(
		toolHungry(), toolHungry(),
		&domain.Message{Role: domain.RoleNarrator, Text: "The dust settles over the battlefield."},
	)
	loop := agentloop.New(narrator, &recordingRunner{}, 2)

	transcript, err := loop.Run(context.Background(), tools.ToolContext{SessionID: "sess-1"}, playerTurn("attack forever"), tools.GameToolSchemas())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := len(narrator.ToolsSeen); got != 3 {
		t.Fatalf("expected 3 narrator calls, got %d", got)
	}
	if narrator.ToolsSeen[0] == nil || narrator.ToolsSeen[1] == nil {
		t.Fatal("regular rounds must offer tools")
	}
	if narrator.ToolsSeen[2] != nil {
		t.Fatal("forced narration must withhold tools")
	}

	last := transcript[len(transcript)-1]
	if !strings.Contains(last.Text, "dust settles") {
		t.Fatalf("forced narration missing: %+v", last)
	}
}

type failingNarrator struct{}

func (failingNarrator) Generate(context.Context, []*domain.Message, []domain.ToolSchema) (*domain.Message, error) {
	return nil, errors.New("upstream down")
}

func TestLoopFallsBackWhenNarratorFails(t *testing.T) {
	loop := agentloop.New(failingNarrator{}, &recordingRunner{}, 6)

	transcript, err := loop.Run(context.Background(), tools.ToolContext{SessionID: "sess-1"}, playerTurn("hello"), tools.GameToolSchemas())
	if err != nil {
		t.Fatalf("narrator failure must not error the turn: %v", err)
	}

	last := transcript[len(transcript)-1]
	if last.Role != domain.RoleNarrator || !strings.Contains(last.Text, "Dungeon Master") {
		t.Fatalf("expected in-fiction fallback, got %+v", last)
	}
}

func TestLoopPropagatesToolFaults(t *testing.T) {
	narrator := llm.NewMockNarrator(&domain.Message{
		Role:      domain.RoleNarrator,
		ToolCalls: []domain.ToolCall{{Name: tools.ToolAttack, Args: map[string]any{"target_id": "goblin_1"}}},
	})
	runner := &recordingRunner{err: errors.New("disk full")}
	loop := agentloop.New(narrator, runner, 6)

	if _, err := loop.Run(context.Background(), tools.ToolContext{SessionID: "sess-1"}, playerTurn("attack"), tools.GameToolSchemas()); err == nil {
		t.Fatal("expected storage fault to abort the turn")
	}
}
