package rules_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/arcana-engine/internal/adapters/llm"
	"github.com/PabloGalante/arcana-engine/internal/app/rules"
	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

type fixedIndex struct {
	docs []*domain.RuleDocument
	err  error
}

func (f *fixedIndex) Search(context.Context, []float32, int) ([]*domain.RuleDocument, error) {
	return f.docs, f.err
}

func invisibleCorpus() []*domain.RuleDocument {
	return []*domain.RuleDocument{
		{
			ID: "rule_attack", Kind: domain.RuleDocConcept, Name: "Attack Rolls",
			Mechanics: []domain.RuleMechanic{
				{Trigger: "attack", Condition: "a creature attacks", Outcome: "roll 2d6 against the target's defense"},
			},
		},
		{
			ID: "rule_invisible", Kind: domain.RuleDocConcept, Name: "Invisible", IsException: true,
			Description: "An invisible creature is impossible to see without magical aid.",
			Mechanics: []domain.RuleMechanic{
				{Trigger: "attack", Condition: "the attacker cannot be seen", Outcome: "the defender has Disadvantage"},
			},
		},
		{
			// Same mechanic repeated under another document; projection
			// must drop the duplicate line.
			ID: "rule_attack_dup", Kind: domain.RuleDocConcept, Name: "Combat Basics",
			Mechanics: []domain.RuleMechanic{
				{Trigger: "attack", Condition: "a creature attacks", Outcome: "roll 2d6 against the target's defense"},
			},
		},
		{
			ID: "entity_goblin", Kind: domain.RuleDocEntity, Name: "Goblin", Chapter: "Bestiary",
			Description: "Small, cowardly humanoids that fight in packs.",
		},
	}
}

func TestAdjudicateProjectsAndSynthesizes(t *testing.T) {
	narrator := llm.NewMockNarrator(&domain.Message{
		Role: domain.RoleNarrator,
		Text: "Rule Interpretation: the defender has Disadvantage.",
	})
	p := rules.NewPipeline(&fixedEmbedder{vec: []float32{1}}, &fixedIndex{docs: invisibleCorpus()}, narrator)

	verdict, err := p.Adjudicate(context.Background(), "sess-1", domain.CheckRules{
		Query:       "what happens when an invisible creature attacks",
		PlayerInput: "I attack from the shadows",
	})
	if err != nil {
		t.Fatalf("adjudicate: %v", err)
	}
	if !strings.Contains(verdict, "Disadvantage") {
		t.Fatalf("verdict lost: %q", verdict)
	}

	if len(narrator.Calls) != 1 {
		t.Fatalf("expected one synthesis call, got %d", len(narrator.Calls))
	}
	if tools := narrator.ToolsSeen[0]; tools != nil {
		t.Fatalf("synthesis must not offer tools, got %v", tools)
	}

	var prompt string
	for _, m := range narrator.Calls[0] {
		if m.Role == domain.RolePlayer {
			prompt = m.Text
		}
	}
	if !strings.Contains(prompt, "[EXCEPTION] IF the attacker cannot be seen (Trigger: attack) THEN the defender has Disadvantage") {
		t.Fatalf("exception line missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "### Goblin (Bestiary)") {
		t.Fatalf("lore entry missing from prompt:\n%s", prompt)
	}
	// Concept descriptions belong in the lore stream too, not just
	// entity docs.
	if !strings.Contains(prompt, "### Invisible\nAn invisible creature is impossible to see without magical aid.") {
		t.Fatalf("concept description missing from lore:\n%s", prompt)
	}
	if strings.Count(prompt, "roll 2d6 against the target's defense") != 1 {
		t.Fatalf("duplicate mechanic not deduplicated:\n%s", prompt)
	}
}

func TestAdjudicateDegradesOnRetrievalFailure(t *testing.T) {
	narrator := llm.NewMockNarrator()

	cases := []struct {
		name string
		p    *rules.Pipeline
	}{
		{"embed fails", rules.NewPipeline(&fixedEmbedder{err: errors.New("quota")}, &fixedIndex{}, narrator)},
		{"search fails", rules.NewPipeline(&fixedEmbedder{vec: []float32{1}}, &fixedIndex{err: errors.New("disk")}, narrator)},
	}
	for _, tc := range cases {
		verdict, err := tc.p.Adjudicate(context.Background(), "sess-1", domain.CheckRules{Query: "anything"})
		if err != nil {
			t.Fatalf("%s: degradation must not error: %v", tc.name, err)
		}
		if !strings.Contains(verdict, "unavailable") {
			t.Fatalf("%s: expected canned verdict, got %q", tc.name, verdict)
		}
	}
}

func TestAdjudicateRejectsEmptyQuery(t *testing.T) {
	p := rules.NewPipeline(&fixedEmbedder{vec: []float32{1}}, &fixedIndex{}, llm.NewMockNarrator())

	if _, err := p.Adjudicate(context.Background(), "sess-1", domain.CheckRules{Query: "  "}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
