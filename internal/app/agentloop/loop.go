// Package agentloop runs the narrator/tool cycle for one turn: the model
// either narrates or requests tool calls, tool results are fed back, and
// the cycle repeats until plain narrative text comes out.
package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/arcana-engine/internal/app/tools"
	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/observability"

	"github.com/google/uuid"
)

// fallbackNarration covers narrator outages without breaking the fiction.
const fallbackNarration = "The Dungeon Master seems distracted for a moment and loses the thread of the story. Please try your action again."

// ToolRunner executes a single tool call. Satisfied by tools.Dispatcher.
type ToolRunner interface {
	Dispatch(ctx context.Context, tctx tools.ToolContext, call domain.ToolCall) (map[string]any, error)
}

// Loop drives the agent cycle with a hard round cap.
type Loop struct {
	narrator  domain.NarratorClient
	runner    ToolRunner
	maxRounds int
	now       func() time.Time
}

func New(narrator domain.NarratorClient, runner ToolRunner, maxRounds int) *Loop {
	if maxRounds <= 0 {
		maxRounds = 6
	}
	return &Loop{narrator: narrator, runner: runner, maxRounds: maxRounds, now: time.Now}
}

// Run extends the transcript until the narrator produces plain text.
// Every tool call in a response is executed, in order, before the model
// is consulted again. When the round cap is reached the model is forced
// to narrate by withholding the tool schemas. Narrator failures resolve
// to an in-fiction fallback line rather than an error; only tool storage
// faults abort the turn.
func (l *Loop) Run(ctx context.Context, tctx tools.ToolContext, transcript []*domain.Message, schemas []domain.ToolSchema) ([]*domain.Message, error) {
	log := observability.ForSession(ctx, string(tctx.SessionID)).With("component", "agentloop")

	for round := 0; round < l.maxRounds; round++ {
		res, err := l.narrator.Generate(ctx, transcript, schemas)
		if err != nil {
			log.Error("narrator call failed", "round", round, "error", err)
			return append(transcript, l.narratorMessage(tctx.SessionID, fallbackNarration)), nil
		}

		if !res.WantsTools() {
			transcript = append(transcript, l.stamp(tctx.SessionID, res))
			return transcript, nil
		}

		transcript = append(transcript, l.stamp(tctx.SessionID, res))
		for _, call := range res.ToolCalls {
			result, err := l.runner.Dispatch(ctx, tctx, call)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			log.Info("tool executed", "tool", call.Name, "success", result["success"])

			transcript = append(transcript, &domain.Message{
				ID:         domain.MessageID(uuid.NewString()),
				SessionID:  tctx.SessionID,
				Role:       domain.RoleTool,
				ToolName:   call.Name,
				ToolResult: result,
				CreatedAt:  l.now(),
			})
		}
	}

	// Round cap reached: one last call with no tools on offer.
	log.Warn("tool round cap reached, forcing narration")
	res, err := l.narrator.Generate(ctx, transcript, nil)
	if err != nil || res.Text == "" {
		if err != nil {
			log.Error("forced narration failed", "error", err)
		}
		return append(transcript, l.narratorMessage(tctx.SessionID, fallbackNarration)), nil
	}
	return append(transcript, l.stamp(tctx.SessionID, res)), nil
}

func (l *Loop) stamp(sessionID domain.SessionID, msg *domain.Message) *domain.Message {
	msg.ID = domain.MessageID(uuid.NewString())
	msg.SessionID = sessionID
	msg.Role = domain.RoleNarrator
	msg.CreatedAt = l.now()
	return msg
}

func (l *Loop) narratorMessage(sessionID domain.SessionID, text string) *domain.Message {
	return l.stamp(sessionID, &domain.Message{Text: text})
}
