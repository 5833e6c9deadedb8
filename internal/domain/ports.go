package domain

import "context"

// ToolSchema describes a callable tool to the narrator. Parameters are
// flat string fields, which is all the game tools need.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]ParamSpec
	Required    []string
}

// ParamSpec documents a single tool parameter.
type ParamSpec struct {
	Description string
}

// NarratorClient defines how the engine talks to the narrator LLM. The
// returned message is either plain narrative text or a set of tool-call
// requests. Passing nil tools disables function calling (used by the
// forced-narrate fallback).
type NarratorClient interface {
	Generate(ctx context.Context, msgs []*Message, tools []ToolSchema) (*Message, error)
}

// Embedder produces retrieval embeddings for free text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SessionStore persists session records (round counter included).
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
}

// HistoryStore persists turn transcripts. ReplaceHistory swaps the whole
// transcript: the agent loop returns old history plus the new turns, so
// append semantics would duplicate entries.
type HistoryStore interface {
	ReplaceHistory(ctx context.Context, sessionID SessionID, msgs []*Message) error
	GetHistory(ctx context.Context, sessionID SessionID) ([]*Message, error)
}

// GameStateStore is the property graph holding player, item and combat
// state. Mutation operations return an ActionResult for in-fiction
// failures (item not found, not enough gold, dead target) and reserve the
// error return for upstream/storage faults.
type GameStateStore interface {
	CreatePlayer(ctx context.Context, sessionID SessionID, name string, stats PlayerStats) error
	GetPlayerStats(ctx context.Context, sessionID SessionID) (*PlayerStats, error)
	GetInventory(ctx context.Context, sessionID SessionID) ([]InventoryItem, error)
	PurchaseItem(ctx context.Context, sessionID SessionID, query string) (*ActionResult, error)
	SellItem(ctx context.Context, sessionID SessionID, query string) (*ActionResult, error)
	Attack(ctx context.Context, sessionID SessionID, targetID string) (*ActionResult, error)
	UpdatePlayerProfile(ctx context.Context, sessionID SessionID, name, race, class string) error

	AddEntity(ctx context.Context, sessionID SessionID, entity EntityNode) error
	AddRelationship(ctx context.Context, sessionID SessionID, rel RelationshipEdge) error
	GetRelatedFacts(ctx context.Context, sessionID SessionID, entityID string) ([]string, error)

	CloneWorldTemplate(ctx context.Context, sessionID SessionID) error
}

// RuleIndex searches the pre-ingested rule corpus by embedding
// similarity.
type RuleIndex interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]*RuleDocument, error)
}

// EpisodicStore holds session-scoped free-text event records searchable
// by embedding similarity.
type EpisodicStore interface {
	AddMemory(ctx context.Context, record *MemoryRecord) error
	SearchMemories(ctx context.Context, sessionID SessionID, embedding []float32, limit int) ([]*MemoryRecord, error)
}

// AuditLog appends one record per turn per session. Implementations must
// never block gameplay; callers log and swallow append failures.
type AuditLog interface {
	Append(ctx context.Context, record *TurnRecord) error
}
