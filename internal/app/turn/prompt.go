package turn

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

const characterCreationPrompt = `You are the Dungeon Master of a dark fantasy tabletop campaign, currently
guiding a brand-new player through CHARACTER CREATION.

Your job this phase:
- Greet the player in character and ask for their hero's name, race and
  class, one or two questions at a time.
- Offer a handful of classic options (races such as Human, Elf, Dwarf,
  Halfling; classes such as Fighter, Ranger, Rogue, Wizard) but accept
  reasonable ideas of their own.
- Once you know all three, call the create_character tool with the name,
  race and char_class exactly as the player chose them.
- Do NOT start the adventure, describe combat, or hand out items until
  character creation is complete.
- If the player tries to act before finishing creation, gently steer
  them back to choosing their character.

Stay warm and concise: a few sentences per reply, always ending with the
question the player should answer next.`

const inGamePrompt = `You are the Dungeon Master of a dark fantasy tabletop campaign. The
player's character is complete and the adventure is underway.

Hard rules you must follow every turn:
1. Before narrating the outcome of ANY mechanically uncertain action
   (attacks, stealth, magic, persuasion, traps, anything with dice), you
   MUST call the check_rules tool and follow its ruling.
2. Purchases go through buy_item, sales through sell_item, and combat
   through attack. Never change gold, inventory or hit points by
   narration alone; the tools are the only source of truth.
3. Tool results are facts. If a tool reports failure, narrate that
   failure in fiction; do not retry with invented success.
4. Keep hidden information hidden. Rulings may mention unseen threats;
   reveal only what the character could perceive.

Narration style:
- Second person, present tense, vivid but brief (2-4 short paragraphs).
- End every scene with what the player can see and a prompt for action.`

// buildSystemPrompt renders the phase instructions plus the live game
// state the narrator must treat as ground truth.
func buildSystemPrompt(phase domain.GamePhase, round int, stats *domain.PlayerStats, inventory []domain.InventoryItem, previousScene, memoryBlock string) string {
	var b strings.Builder

	if phase == domain.PhaseInGame {
		b.WriteString(inGamePrompt)
	} else {
		b.WriteString(characterCreationPrompt)
	}

	b.WriteString(fmt.Sprintf("\n\nROUND %d", round))

	if stats != nil {
		b.WriteString("\n\nPLAYER STATE (authoritative, do not contradict):\n")
		b.WriteString(fmt.Sprintf("- Name: %s (%s %s)\n", stats.Name, stats.Race, stats.Class))
		b.WriteString(fmt.Sprintf("- HP: %d/%d\n", stats.HPCurrent, stats.HPMax))
		b.WriteString(fmt.Sprintf("- Gold: %d\n", stats.Gold))
		b.WriteString(fmt.Sprintf("- Power: %d, Speed: %d\n", stats.Power, stats.Speed))
	}

	if len(inventory) > 0 {
		b.WriteString("\nINVENTORY:\n")
		for _, item := range inventory {
			b.WriteString(fmt.Sprintf("- %s (%s, id %s)\n", item.Name, item.Type, item.ID))
		}
	}

	if previousScene != "" {
		b.WriteString("\nPREVIOUS SCENE (pass this as previous_narrative_text when calling check_rules):\n")
		b.WriteString(previousScene)
		b.WriteString("\n")
	}

	if memoryBlock != "" {
		b.WriteString("\nMEMORY:\n")
		b.WriteString(memoryBlock)
	}

	return b.String()
}
