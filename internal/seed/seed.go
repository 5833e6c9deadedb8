// Package seed holds the starter world template and rulebook corpus
// shared by the API server and the seeding command.
package seed

import "github.com/PabloGalante/arcana-engine/internal/domain"

// WorldNodes is the starter world every new session is cloned from.
func WorldNodes() []domain.EntityNode {
	return []domain.EntityNode{
		{ID: "loc_wayfarers_rest", Label: "Location", Properties: map[string]any{
			"name":        "The Wayfarer's Rest",
			"description": "A creaking roadside inn where every story in these parts begins.",
		}},
		{ID: "loc_forest_road", Label: "Location", Properties: map[string]any{
			"name":        "Forest Road",
			"description": "A rutted track winding north through pine shadow.",
		}},
		{ID: "item_rusty_sword", Label: "Weapon", Properties: map[string]any{
			"name": "Rusty Sword", "value": "5gp", "damage": "1d8",
		}},
		{ID: "item_potion_healing", Label: "Item", Properties: map[string]any{
			"name": "Potion of Healing", "value": "25gp", "effect": "restore 2d4 hp",
		}},
		{ID: "item_leather_armor", Label: "Armor", Properties: map[string]any{
			"name": "Leather Armor", "value": "10gp", "defense_bonus": 1,
		}},
		{ID: "goblin_1", Label: "Character", Properties: map[string]any{
			"name": "Snaggle the Goblin", "hp_current": 7, "hp_max": 7, "defense": 7, "disposition": "hostile",
		}},
		{ID: "innkeeper", Label: "Character", Properties: map[string]any{
			"name": "Marla the Innkeeper", "hp_current": 8, "hp_max": 8, "defense": 9, "disposition": "friendly",
		}},
	}
}

// WorldEdges links the starter world together.
func WorldEdges() []domain.RelationshipEdge {
	return []domain.RelationshipEdge{
		{SourceID: "innkeeper", TargetID: "loc_wayfarers_rest", Type: "LOCATED_IN"},
		{SourceID: "goblin_1", TargetID: "loc_forest_road", Type: "LOCATED_IN"},
		{SourceID: "loc_wayfarers_rest", TargetID: "item_rusty_sword", Type: "CONTAINS"},
		{SourceID: "loc_wayfarers_rest", TargetID: "item_potion_healing", Type: "CONTAINS"},
		{SourceID: "loc_wayfarers_rest", TargetID: "item_leather_armor", Type: "CONTAINS"},
	}
}

// RuleDocs is the starter rulebook. Embeddings are filled in by the
// seeding command before the docs reach the index.
func RuleDocs() []*domain.RuleDocument {
	return []*domain.RuleDocument{
		{
			ID: "rule_attack_rolls", Kind: domain.RuleDocConcept, Name: "Attack Rolls", Chapter: "Combat",
			Description: "Resolving an attack against a defended target.",
			Mechanics: []domain.RuleMechanic{
				{Trigger: "attack", Condition: "a creature attacks a target", Outcome: "roll 2d6; the attack hits if the roll meets or beats the target's defense"},
				{Trigger: "hit", Condition: "an attack hits", Outcome: "deal 1d8 damage plus half the attacker's power above 10"},
			},
		},
		{
			ID: "rule_invisible", Kind: domain.RuleDocConcept, Name: "Invisible", Chapter: "Conditions", IsException: true,
			Description: "Creatures that cannot be seen.",
			Mechanics: []domain.RuleMechanic{
				{Trigger: "attack", Condition: "the attacker cannot be seen by the defender", Outcome: "the defender has Disadvantage and may not react"},
			},
			Premise:     "a creature is Invisible",
			Implication: "it can only be targeted by guessing its location",
		},
		{
			ID: "rule_stealth", Kind: domain.RuleDocConcept, Name: "Stealth", Chapter: "Exploration",
			Description: "Hiding and moving unseen.",
			Mechanics: []domain.RuleMechanic{
				{Trigger: "hide", Condition: "a creature attempts to hide with cover available", Outcome: "roll 2d6 plus speed above 10 against the observer's awareness"},
			},
		},
		{
			ID: "rule_trade", Kind: domain.RuleDocConcept, Name: "Buying and Selling", Chapter: "Equipment",
			Description: "Trade with merchants and townsfolk.",
			Mechanics: []domain.RuleMechanic{
				{Trigger: "sell", Condition: "a character sells an item", Outcome: "the seller receives half the item's listed value, rounded down"},
			},
		},
		{
			ID: "entity_goblin", Kind: domain.RuleDocEntity, Name: "Goblin", Chapter: "Bestiary",
			Description: "Small, cowardly humanoids that fight in packs and flee when bloodied. Defense 7, 7 hit points.",
		},
		{
			ID: "entity_ranger", Kind: domain.RuleDocEntity, Name: "Ranger", Chapter: "Classes",
			Description: "A wilderness hunter. Rangers excel at tracking, archery and moving quietly off the road.",
		},
	}
}

// EmbeddingText flattens a rule document into the text that gets
// embedded for retrieval.
func EmbeddingText(doc *domain.RuleDocument) string {
	text := doc.Name + ". " + doc.Description
	for _, m := range doc.Mechanics {
		text += " If " + m.Condition + " then " + m.Outcome + "."
	}
	if doc.Premise != "" {
		text += " " + doc.Premise + ": " + doc.Implication + "."
	}
	return text
}
