// Package rules implements the retrieval and adjudication pipeline behind
// the check_rules tool: embed the question, retrieve the closest rule
// documents, project them into lore and mechanic streams, and ask the
// model for a ruling.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/observability"
)

// unavailableVerdict is returned when retrieval or synthesis fails. The
// narrator treats it as a ruling, so the turn still completes.
const unavailableVerdict = "Rule adjudication is unavailable right now. " +
	"Rule Interpretation: resolve the action with your best judgment and keep outcomes modest. " +
	"DM Action Items: avoid permanent consequences this turn. " +
	"Logic Trace: the rulebook could not be consulted."

const defaultTopK = 10

// Pipeline wires the embedder, the rule index and the synthesis model.
type Pipeline struct {
	embedder domain.Embedder
	index    domain.RuleIndex
	llm      domain.NarratorClient
	topK     int
}

func NewPipeline(embedder domain.Embedder, index domain.RuleIndex, llm domain.NarratorClient) *Pipeline {
	return &Pipeline{embedder: embedder, index: index, llm: llm, topK: defaultTopK}
}

// Adjudicate implements the check_rules tool. Retrieval and synthesis
// failures degrade to a canned ruling instead of failing the turn; only
// an empty query is a caller error.
func (p *Pipeline) Adjudicate(ctx context.Context, sessionID domain.SessionID, req domain.CheckRules) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", fmt.Errorf("rule query is empty: %w", domain.ErrInvalidState)
	}

	log := observability.ForSession(ctx, string(sessionID)).With("component", "rules")

	embedding, err := p.embedder.Embed(ctx, req.Query)
	if err != nil {
		log.Warn("rule query embedding failed", "error", err)
		return unavailableVerdict, nil
	}

	docs, err := p.index.Search(ctx, embedding, p.topK)
	if err != nil {
		log.Warn("rule retrieval failed", "error", err)
		return unavailableVerdict, nil
	}

	lore, ruleLines := project(docs)
	log.Info("rules retrieved", "documents", len(docs), "rule_lines", len(ruleLines))

	prompt := buildAdjudicationPrompt(req, lore, ruleLines)
	msgs := []*domain.Message{
		{Role: domain.RoleSystem, Text: adjudicatorSystemPrompt},
		{Role: domain.RolePlayer, Text: prompt},
	}

	res, err := p.llm.Generate(ctx, msgs, nil)
	if err != nil {
		log.Warn("rule synthesis failed", "error", err)
		return unavailableVerdict, nil
	}
	if strings.TrimSpace(res.Text) == "" {
		log.Warn("rule synthesis returned empty text")
		return unavailableVerdict, nil
	}
	return res.Text, nil
}

// project splits retrieved documents into a lore stream (every
// document's description, entity and concept alike) and a mechanics
// stream of IF/THEN lines. Exact duplicate lines are dropped; the
// corpus repeats shared mechanics across documents.
func project(docs []*domain.RuleDocument) (lore, ruleLines []string) {
	seen := map[string]bool{}
	add := func(dst *[]string, line string) {
		if line == "" || seen[line] {
			return
		}
		seen[line] = true
		*dst = append(*dst, line)
	}

	for _, doc := range docs {
		if doc.Description != "" {
			header := doc.Name
			if doc.Chapter != "" {
				header += " (" + doc.Chapter + ")"
			}
			add(&lore, "### "+header+"\n"+doc.Description)
		}

		prefix := ""
		if doc.IsException {
			prefix = "[EXCEPTION] "
		}

		for _, m := range doc.Mechanics {
			line := prefix + "IF " + m.Condition
			if m.Trigger != "" {
				line += " (Trigger: " + m.Trigger + ")"
			}
			line += " THEN " + m.Outcome
			add(&ruleLines, line)
		}

		if doc.Premise != "" && doc.Implication != "" {
			add(&ruleLines, prefix+"IF "+doc.Premise+" THEN "+doc.Implication)
		}
	}
	return lore, ruleLines
}
