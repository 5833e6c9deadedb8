// Package turn orchestrates a full game turn: phase-aware prompt
// assembly, the narrator/tool agent loop, state refresh, memory writes
// and the audit trail.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/arcana-engine/internal/app/agentloop"
	"github.com/PabloGalante/arcana-engine/internal/app/memoryctx"
	"github.com/PabloGalante/arcana-engine/internal/app/tools"
	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/observability"
)

const (
	startingLocation = "The Wayfarer's Rest"

	openingNarration = "Rain drums on the windows of The Wayfarer's Rest as you shake off the " +
		"road's chill. The innkeeper slides a mug toward you and leans in: \"Every tale needs " +
		"a hero, stranger. Who are you?\"\n\nTell me your hero's name, race and class, and " +
		"we shall begin."
)

var startingStats = domain.PlayerStats{
	HPCurrent: 20, HPMax: 20, Gold: 50, Power: 12, Speed: 10,
}

// Service runs sessions and turns end to end.
type Service struct {
	sessions domain.SessionStore
	history  domain.HistoryStore
	state    domain.GameStateStore
	loop     *agentloop.Loop
	memory   *memoryctx.Router
	embedder domain.Embedder
	episodic domain.EpisodicStore
	audit    domain.AuditLog

	turnTimeout time.Duration
	now         func() time.Time

	mu    sync.Mutex
	locks map[domain.SessionID]*sync.Mutex
}

func NewService(
	sessions domain.SessionStore,
	history domain.HistoryStore,
	state domain.GameStateStore,
	loop *agentloop.Loop,
	memory *memoryctx.Router,
	embedder domain.Embedder,
	episodic domain.EpisodicStore,
	audit domain.AuditLog,
	turnTimeout time.Duration,
) *Service {
	if turnTimeout <= 0 {
		turnTimeout = 90 * time.Second
	}
	return &Service{
		sessions:    sessions,
		history:     history,
		state:       state,
		loop:        loop,
		memory:      memory,
		embedder:    embedder,
		episodic:    episodic,
		audit:       audit,
		turnTimeout: turnTimeout,
		now:         time.Now,
		locks:       map[domain.SessionID]*sync.Mutex{},
	}
}

type StartSessionInput struct {
	PlayerName string
}

type StartSessionOutput struct {
	Session *domain.Session
	Scene   *domain.Scene
}

// StartSession creates a fresh session: a private clone of the world
// template, an uncustomized player character and the opening scene of
// the character-creation phase.
func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now()
	name := strings.TrimSpace(in.PlayerName)
	if name == "" {
		name = "Traveler"
	}

	session := &domain.Session{
		ID:             domain.SessionID(uuid.NewString()),
		PlayerName:     name,
		Round:          0,
		AnchorEntityID: "player",
		Location:       startingLocation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	log := observability.ForSession(ctx, string(session.ID))
	log.Info("starting session", "player_name", name)

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.state.CloneWorldTemplate(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("clone world template: %w", err)
	}
	if err := s.state.CreatePlayer(ctx, session.ID, name, startingStats); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}

	opening := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Role:      domain.RoleNarrator,
		Text:      openingNarration,
		CreatedAt: now,
	}
	if err := s.history.ReplaceHistory(ctx, session.ID, []*domain.Message{opening}); err != nil {
		return nil, fmt.Errorf("seed history: %w", err)
	}

	return &StartSessionOutput{
		Session: session,
		Scene: &domain.Scene{
			SceneID:          uuid.NewString(),
			Title:            "A New Tale Begins",
			NarrativeText:    openingNarration,
			Location:         session.Location,
			AvailableActions: []string{"Create Character"},
			Metadata: map[string]any{
				"session_id": string(session.ID),
				"round":      0,
				"phase":      string(domain.PhaseCharacterCreation),
			},
		},
	}, nil
}

type ProcessTurnInput struct {
	SessionID   domain.SessionID
	PlayerInput string
}

type ProcessTurnOutput struct {
	Scene       *domain.Scene
	Stats       *domain.PlayerStats
	RoundNumber int

	// RuleResult is the last check_rules verdict of the turn, empty when
	// no adjudication ran. ActionLog is the last game-mutating tool
	// result, nil when the narrator only spoke.
	RuleResult string
	ActionLog  map[string]any
}

// ProcessTurn runs one complete turn. Turns within a session are
// serialized by a per-session mutex and bounded by the turn timeout;
// different sessions proceed in parallel.
func (s *Service) ProcessTurn(ctx context.Context, in ProcessTurnInput) (*ProcessTurnOutput, error) {
	playerInput := strings.TrimSpace(in.PlayerInput)
	if playerInput == "" {
		return nil, fmt.Errorf("player input is empty: %w", domain.ErrInvalidState)
	}

	lock := s.sessionLock(in.SessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	log := observability.ForSession(ctx, string(in.SessionID))

	session, err := s.sessions.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	round := session.Round + 1

	stats, err := s.state.GetPlayerStats(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get player stats: %w", err)
	}
	phase := domain.PhaseCharacterCreation
	if stats.CreationComplete() {
		phase = domain.PhaseInGame
	}
	log.Info("processing turn", "round", round, "phase", phase)

	inventory, err := s.state.GetInventory(ctx, in.SessionID)
	if err != nil {
		log.Warn("inventory fetch failed, prompting without it", "error", err)
		inventory = nil
	}

	history, err := s.history.GetHistory(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	// The most recent narrator text grounds rule adjudication, so the
	// model does not have to re-type the scene into check_rules.
	previousScene := ""
	for _, m := range history {
		if m.Role == domain.RoleNarrator && m.Text != "" {
			previousScene = m.Text
		}
	}

	memoryBlock := ""
	if s.memory != nil {
		memoryBlock = memoryctx.Render(s.memory.RetrieveContext(ctx, in.SessionID, session.AnchorEntityID, playerInput))
	}

	msgs := make([]*domain.Message, 0, len(history)+2)
	msgs = append(msgs, &domain.Message{
		Role: domain.RoleSystem,
		Text: buildSystemPrompt(phase, round, stats, inventory, previousScene, memoryBlock),
	})
	for _, m := range history {
		if m.Role != domain.RoleSystem {
			msgs = append(msgs, m)
		}
	}
	playerMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: in.SessionID,
		Role:      domain.RolePlayer,
		Text:      playerInput,
		CreatedAt: s.now(),
	}
	msgs = append(msgs, playerMsg)
	priorLen := len(msgs)

	tctx := tools.ToolContext{SessionID: in.SessionID}
	transcript, err := s.loop.Run(ctx, tctx, msgs, tools.GameToolSchemas())
	if err != nil {
		return nil, fmt.Errorf("agent loop: %w", err)
	}

	narrative, ruleResult, actionsTaken, actionLog := digestTurn(transcript[priorLen:])

	rec := &domain.TurnRecord{
		RoundNumber:   round,
		SessionID:     string(in.SessionID),
		PlayerInput:   playerInput,
		NarrativeText: narrative,
		RuleResult:    ruleResult,
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		log.Warn("audit append failed", "error", err)
	}

	s.rememberTurn(ctx, in.SessionID, playerInput, narrative, log)

	trimmed := make([]*domain.Message, 0, len(transcript))
	for _, m := range transcript {
		if m.Role != domain.RoleSystem {
			trimmed = append(trimmed, m)
		}
	}
	if err := s.history.ReplaceHistory(ctx, in.SessionID, trimmed); err != nil {
		log.Error("history replace failed, next turn loses this exchange", "error", err)
	}

	session.Round = round
	session.UpdatedAt = s.now()
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		log.Error("session update failed", "error", err)
	}

	statsAfter, err := s.state.GetPlayerStats(ctx, in.SessionID)
	if err != nil {
		log.Warn("stats refetch failed, responding without stats", "error", err)
		statsAfter = nil
	}

	var available []string
	if statsAfter != nil && !statsAfter.CreationComplete() {
		available = []string{"Create Character"}
	}

	metadata := map[string]any{
		"round":         round,
		"phase":         string(phase),
		"actions_taken": actionsTaken,
	}
	if ruleResult != "" {
		metadata["rule_result"] = ruleResult
	}
	if actionLog != nil {
		metadata["action_log"] = actionLog
	}

	return &ProcessTurnOutput{
		Scene: &domain.Scene{
			SceneID:          uuid.NewString(),
			NarrativeText:    narrative,
			Location:         session.Location,
			AvailableActions: available,
			Metadata:         metadata,
		},
		Stats:       statsAfter,
		RoundNumber: round,
		RuleResult:  ruleResult,
		ActionLog:   actionLog,
	}, nil
}

type SessionStateOutput struct {
	Session   *domain.Session
	Stats     *domain.PlayerStats
	Inventory []domain.InventoryItem
}

// SessionState serves the read-only stats endpoint.
func (s *Service) SessionState(ctx context.Context, sessionID domain.SessionID) (*SessionStateOutput, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	stats, err := s.state.GetPlayerStats(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get player stats: %w", err)
	}
	inventory, err := s.state.GetInventory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return &SessionStateOutput{Session: session, Stats: stats, Inventory: inventory}, nil
}

// digestTurn extracts the final narrative, the last rule adjudication,
// the ordered list of executed tools and the last game-mutating tool
// result from this turn's new messages.
func digestTurn(newMsgs []*domain.Message) (narrative, ruleResult string, actionsTaken []string, actionLog map[string]any) {
	for _, m := range newMsgs {
		switch m.Role {
		case domain.RoleNarrator:
			if m.Text != "" {
				narrative = m.Text
			}
		case domain.RoleTool:
			actionsTaken = append(actionsTaken, m.ToolName)
			if v, ok := m.ToolResult["rule_result"].(string); ok && v != "" {
				ruleResult = v
			} else {
				actionLog = m.ToolResult
			}
		}
	}
	return narrative, ruleResult, actionsTaken, actionLog
}

// rememberTurn writes both sides of the exchange to the episodic store.
// Failures are logged and swallowed; memory is a quality feature, not a
// correctness one.
func (s *Service) rememberTurn(ctx context.Context, sessionID domain.SessionID, playerInput, narrative string, log *slog.Logger) {
	if s.episodic == nil || s.embedder == nil {
		return
	}

	entries := []struct {
		speaker string
		text    string
	}{
		{"player", playerInput},
		{"narrator", narrative},
	}
	for _, e := range entries {
		if e.text == "" {
			continue
		}
		embedding, err := s.embedder.Embed(ctx, e.text)
		if err != nil {
			log.Warn("memory embedding failed", "speaker", e.speaker, "error", err)
			continue
		}
		rec := &domain.MemoryRecord{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Speaker:   e.speaker,
			EventType: "turn",
			Summary:   e.text,
			RawText:   e.text,
			Embedding: embedding,
			CreatedAt: s.now(),
		}
		if err := s.episodic.AddMemory(ctx, rec); err != nil {
			log.Warn("memory write failed", "speaker", e.speaker, "error", err)
		}
	}
}

func (s *Service) sessionLock(id domain.SessionID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locks[id] == nil {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}
