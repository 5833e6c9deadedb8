package domain

// Action is the tagged union of game actions the narrator can request.
// Tool calls are decoded into one of these variants and dispatched via an
// explicit type switch; there is no name-based reflection anywhere.
type Action interface {
	isAction()
}

// BuyItem purchases an item resolved from a free-text query (item id or
// partial name).
type BuyItem struct {
	ItemQuery string
}

// SellItem sells an owned item for half its parsed value.
type SellItem struct {
	ItemQuery string
}

// AttackTarget rolls an attack against a target entity.
type AttackTarget struct {
	TargetID string
}

// CreateCharacter finishes character creation; it flips the game phase
// once race and class are concrete.
type CreateCharacter struct {
	Name  string
	Race  string
	Class string
}

// CheckRules runs the rule retrieval and adjudication pipeline.
type CheckRules struct {
	Query             string
	Reason            string
	PlayerInput       string
	PreviousNarrative string
	MemoryContext     string
}

func (BuyItem) isAction()         {}
func (SellItem) isAction()        {}
func (AttackTarget) isAction()    {}
func (CreateCharacter) isAction() {}
func (CheckRules) isAction()      {}

// ActionResult is the structured outcome of a game-state mutation. Failed
// actions report Success=false with a message the narrator can verbalize
// in-fiction; they never surface as errors to the agent loop.
type ActionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`

	// Err classifies a failure against the error taxonomy (ErrNotFound,
	// ErrInsufficientResource, ErrInvalidState) so callers can branch
	// with errors.Is. It is not part of the narrator-facing payload.
	Err error `json:"-"`
}
