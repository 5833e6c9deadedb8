// Package memoryctx assembles the memory context injected into the
// narrator prompt: episodic recollections similar to the player's input
// plus semantic facts from the session's graph.
package memoryctx

import (
	"context"
	"strings"

	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/observability"
)

const episodicLimit = 5

// Router retrieves both memory streams for a turn. Retrieval is best
// effort: a failing store degrades to an empty stream and the turn goes
// on without it.
type Router struct {
	embedder domain.Embedder
	episodic domain.EpisodicStore
	state    domain.GameStateStore
}

func NewRouter(embedder domain.Embedder, episodic domain.EpisodicStore, state domain.GameStateStore) *Router {
	return &Router{embedder: embedder, episodic: episodic, state: state}
}

// RetrieveContext returns memories relevant to playerInput. anchorID is
// the graph entity whose surrounding facts feed the semantic stream,
// normally the player node.
func (r *Router) RetrieveContext(ctx context.Context, sessionID domain.SessionID, anchorID, playerInput string) *domain.MemoryContext {
	log := observability.ForSession(ctx, string(sessionID)).With("component", "memory")
	out := &domain.MemoryContext{}

	embedding, err := r.embedder.Embed(ctx, playerInput)
	if err != nil {
		log.Warn("memory embedding failed", "error", err)
	} else {
		recs, err := r.episodic.SearchMemories(ctx, sessionID, embedding, episodicLimit)
		if err != nil {
			log.Warn("episodic retrieval failed", "error", err)
		} else {
			out.Episodic = recs
		}
	}

	if anchorID != "" {
		facts, err := r.state.GetRelatedFacts(ctx, sessionID, anchorID)
		if err != nil {
			log.Warn("semantic retrieval failed", "error", err)
		} else {
			out.Semantic = facts
		}
	}

	return out
}

// Render flattens a memory context into the prompt block format.
func Render(mc *domain.MemoryContext) string {
	if mc == nil || (len(mc.Episodic) == 0 && len(mc.Semantic) == 0) {
		return ""
	}

	var b strings.Builder
	if len(mc.Episodic) > 0 {
		b.WriteString("Recent events you remember:\n")
		for _, rec := range mc.Episodic {
			summary := rec.Summary
			if summary == "" {
				summary = rec.RawText
			}
			b.WriteString("- " + summary + "\n")
		}
	}
	if len(mc.Semantic) > 0 {
		b.WriteString("Known facts about the world:\n")
		for _, fact := range mc.Semantic {
			b.WriteString("- " + fact + "\n")
		}
	}
	return b.String()
}
