package domain

// Session is one playthrough. All game state is keyed by its ID, so
// concurrent sessions never share a character or inventory.
type Session struct {
	ID         SessionID
	PlayerName string

	// Round counts completed turns; the first ProcessTurn after
	// StartSession observes round 1.
	Round int

	// AnchorEntityID is the graph entity the memory router uses for
	// semantic fact lookups (the player node by default).
	AnchorEntityID string
	Location       string

	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// ToolCall is a structured function invocation requested by the narrator
// instead of free text.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one entry of a turn transcript. Exactly one of the role
// shapes is populated: plain text for player/narrator/system turns,
// ToolCalls on a narrator turn that requests tools, and ToolName +
// ToolResult on a tool turn.
type Message struct {
	ID        MessageID
	SessionID SessionID
	Role      Role
	Text      string

	ToolCalls []ToolCall

	ToolName   string
	ToolResult map[string]any

	CreatedAt Timestamp
}

// WantsTools reports whether the narrator requested tool execution.
func (m *Message) WantsTools() bool {
	return m != nil && m.Role == RoleNarrator && len(m.ToolCalls) > 0
}

// Scene is the player-facing result of a session start or turn.
type Scene struct {
	SceneID          string         `json:"scene_id"`
	Title            string         `json:"title"`
	NarrativeText    string         `json:"narrative_text"`
	Location         string         `json:"location"`
	AvailableActions []string       `json:"available_actions"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// TurnRecord is the audit entry appended once per turn per session.
type TurnRecord struct {
	RoundNumber   int    `json:"round_number"`
	SessionID     string `json:"session_id"`
	PlayerInput   string `json:"player_input"`
	NarrativeText string `json:"narrative_text"`
	RuleResult    string `json:"rule_result,omitempty"`
}
