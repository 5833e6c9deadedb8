package domain

// RuleDocKind distinguishes the two document shapes produced by the
// offline rule ingestion pipeline.
type RuleDocKind string

const (
	RuleDocEntity  RuleDocKind = "entity_or_class"
	RuleDocConcept RuleDocKind = "rule_concept"
)

// RuleMechanic is one atomic trigger/condition/outcome unit of an entity
// or class document.
type RuleMechanic struct {
	Trigger   string `json:"trigger"`
	Condition string `json:"condition"`
	Outcome   string `json:"outcome"`
}

// RuleDocument is a read-only entry of the pre-ingested rule corpus.
// Any document may carry Mechanics; concept documents may additionally
// carry a premise/implication pair and the exception flag.
type RuleDocument struct {
	ID          string         `json:"id"`
	Kind        RuleDocKind    `json:"kind"`
	Name        string         `json:"name"`
	Chapter     string         `json:"chapter,omitempty"`
	Description string         `json:"description"`
	Mechanics   []RuleMechanic `json:"mechanics,omitempty"`
	Premise     string         `json:"premise,omitempty"`
	Implication string         `json:"implication,omitempty"`
	IsException bool           `json:"is_exception,omitempty"`
	Embedding   []float32      `json:"-"`
}

// MemoryRecord is a session-scoped episodic memory entry.
type MemoryRecord struct {
	ID        string
	SessionID SessionID
	Speaker   string
	EventType string
	Summary   string
	RawText   string
	Embedding []float32
	CreatedAt Timestamp
}

// MemoryContext bundles what the memory router retrieved for a turn.
// Both arms are best-effort; empty results are not an error.
type MemoryContext struct {
	Episodic []*MemoryRecord
	Semantic []string
}
