package rules

import (
	"strings"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

const adjudicatorSystemPrompt = `You are the Rules Adjudicator for a tabletop RPG engine. You receive a
game situation plus retrieved lore and rule mechanics, and you decide how
the rules apply.

Protocol:
1. Rules may involve HIDDEN elements (invisible creatures, secret doors,
   unrevealed traps). Adjudicate them without revealing hidden details to
   the player; address reveal instructions to the Dungeon Master only.
2. A SPECIFIC rule always beats a GENERAL rule. Lines marked [EXCEPTION]
   override anything they conflict with.
3. If the retrieved rules do not cover the situation, say so and fall
   back to a reasonable ruling instead of inventing mechanics.
4. Never narrate the scene. You produce a ruling, not story text.

Answer with exactly these sections:

Rule Interpretation:
<how the retrieved rules apply to this situation>

DM Action Items:
<concrete instructions for the Dungeon Master: rolls to make, modifiers
to apply, what to keep hidden>

Logic Trace:
<which retrieved lines you relied on and why, in one or two sentences>`

// buildAdjudicationPrompt assembles the user-facing half of the
// synthesis request: the situation first, then the projected lore and
// rule streams.
func buildAdjudicationPrompt(req domain.CheckRules, lore, ruleLines []string) string {
	var b strings.Builder

	b.WriteString("SITUATION\n")
	b.WriteString("Question: " + req.Query + "\n")
	if req.Reason != "" {
		b.WriteString("Reason for consulting the rules: " + req.Reason + "\n")
	}
	if req.PlayerInput != "" {
		b.WriteString("Player said: " + req.PlayerInput + "\n")
	}
	if req.PreviousNarrative != "" {
		b.WriteString("Previous scene: " + req.PreviousNarrative + "\n")
	}
	if req.MemoryContext != "" {
		b.WriteString("Relevant memories: " + req.MemoryContext + "\n")
	}

	b.WriteString("\nRELEVANT LORE\n")
	if len(lore) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for _, entry := range lore {
		b.WriteString(entry + "\n")
	}

	b.WriteString("\nRELEVANT RULES\n")
	if len(ruleLines) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for _, line := range ruleLines {
		b.WriteString(line + "\n")
	}

	return b.String()
}
