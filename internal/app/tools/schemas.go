// Package tools decodes narrator tool calls into typed game actions and
// dispatches them against the game state store and the rule adjudicator.
package tools

import "github.com/PabloGalante/arcana-engine/internal/domain"

// Tool names offered to the narrator.
const (
	ToolBuyItem         = "buy_item"
	ToolSellItem        = "sell_item"
	ToolAttack          = "attack"
	ToolCreateCharacter = "create_character"
	ToolCheckRules      = "check_rules"
)

// GameToolSchemas declares every tool the narrator may call during a
// turn. Every tool accepts a session_id parameter because the model
// likes echoing it; the dispatcher always uses the authoritative
// session from ToolContext and ignores the argument.
func GameToolSchemas() []domain.ToolSchema {
	return []domain.ToolSchema{
		{
			Name:        ToolBuyItem,
			Description: "Purchase an item for the player. Deducts gold and adds the item to the inventory.",
			Parameters: map[string]domain.ParamSpec{
				"item_id":    {Description: "Item id or (partial) item name, e.g. 'healing potion'."},
				"session_id": {Description: "Current session id."},
			},
			Required: []string{"item_id"},
		},
		{
			Name:        ToolSellItem,
			Description: "Sell an item the player owns for half its value.",
			Parameters: map[string]domain.ParamSpec{
				"item_id":    {Description: "Item id or (partial) item name from the player's inventory."},
				"session_id": {Description: "Current session id."},
			},
			Required: []string{"item_id"},
		},
		{
			Name:        ToolAttack,
			Description: "Resolve one attack by the player against a target entity. Rolls dice and applies damage.",
			Parameters: map[string]domain.ParamSpec{
				"target_id":  {Description: "Entity id of the target, e.g. 'goblin_1'."},
				"session_id": {Description: "Current session id."},
			},
			Required: []string{"target_id"},
		},
		{
			Name:        ToolCreateCharacter,
			Description: "Finalize character creation once the player has chosen a name, race and class.",
			Parameters: map[string]domain.ParamSpec{
				"name":       {Description: "Character name."},
				"race":       {Description: "Character race, e.g. 'Elf'."},
				"char_class": {Description: "Character class, e.g. 'Ranger'."},
				"session_id": {Description: "Current session id."},
			},
			Required: []string{"name", "race", "char_class"},
		},
		{
			Name:        ToolCheckRules,
			Description: "Consult the rulebook before narrating any mechanically uncertain action. Returns an adjudication to follow.",
			Parameters: map[string]domain.ParamSpec{
				"session_id":              {Description: "Current session id."},
				"query":                   {Description: "Short question about the rules situation."},
				"reason":                  {Description: "Why adjudication is needed."},
				"player_input":            {Description: "The player's raw input this turn."},
				"previous_narrative_text": {Description: "The narrator's previous scene text."},
				"memory_context":          {Description: "Relevant memory snippets, if any."},
			},
			Required: []string{"query"},
		},
	}
}
