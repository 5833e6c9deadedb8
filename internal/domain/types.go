package domain

import "time"

type SessionID string
type MessageID string

// Role identifies who authored a message in a turn transcript.
type Role string

const (
	RoleSystem   Role = "system"
	RolePlayer   Role = "player"
	RoleNarrator Role = "narrator"
	RoleTool     Role = "tool"
)

// GamePhase gates which system instructions the narrator receives.
// The CHARACTER_CREATION -> IN_GAME transition is one-way and happens only
// after a create_character call sets non-"Unknown" race and class.
type GamePhase string

const (
	PhaseCharacterCreation GamePhase = "character_creation"
	PhaseInGame            GamePhase = "in_game"
)

// UnknownField is the sentinel for character-creation fields that have not
// been chosen yet.
const UnknownField = "Unknown"

type Timestamp = time.Time
