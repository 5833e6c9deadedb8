package memoryctx_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PabloGalante/arcana-engine/internal/adapters/llm"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/graph"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/vector"
	"github.com/PabloGalante/arcana-engine/internal/app/memoryctx"
	"github.com/PabloGalante/arcana-engine/internal/dice"
	"github.com/PabloGalante/arcana-engine/internal/domain"
)

func TestRetrieveContextCombinesStreams(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	graphStore, err := graph.Open(filepath.Join(dir, "graph.db"), dice.NewSeeded(1))
	if err != nil {
		t.Fatalf("open graph: %v", err)
	}
	t.Cleanup(func() { _ = graphStore.Close() })

	vecStore, err := vector.Open(filepath.Join(dir, "vectors.db"))
	if err != nil {
		t.Fatalf("open vector: %v", err)
	}
	t.Cleanup(func() { _ = vecStore.Close() })

	session := domain.SessionID("sess-mem")
	err = graphStore.CreatePlayer(ctx, session, "Aldric", domain.PlayerStats{HPCurrent: 20, HPMax: 20, Gold: 50, Power: 12, Speed: 10})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	err = graphStore.AddEntity(ctx, session, domain.EntityNode{
		ID: "item_potion", Label: "Item", Properties: map[string]any{"name": "Potion of Healing", "value": "5gp"},
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := graphStore.PurchaseItem(ctx, session, "healing potion"); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	embedder := llm.NewMockEmbedder()
	vec, _ := embedder.Embed(ctx, "the goblin ambush")
	err = vecStore.AddMemory(ctx, &domain.MemoryRecord{
		ID: "m1", SessionID: session, Summary: "Goblins ambushed you on the forest road.", Embedding: vec,
	})
	if err != nil {
		t.Fatalf("add memory: %v", err)
	}

	router := memoryctx.NewRouter(embedder, vecStore, graphStore)
	mc := router.RetrieveContext(ctx, session, "player", "the goblin ambush")

	if len(mc.Episodic) != 1 || mc.Episodic[0].ID != "m1" {
		t.Fatalf("episodic stream wrong: %+v", mc.Episodic)
	}
	if len(mc.Semantic) == 0 {
		t.Fatalf("expected OWNS fact in semantic stream")
	}

	rendered := memoryctx.Render(mc)
	if !strings.Contains(rendered, "Goblins ambushed you") {
		t.Fatalf("episodic memory missing from render:\n%s", rendered)
	}
	if !strings.Contains(rendered, "OWNS") {
		t.Fatalf("graph fact missing from render:\n%s", rendered)
	}
}

func TestRenderEmptyContext(t *testing.T) {
	if got := memoryctx.Render(nil); got != "" {
		t.Fatalf("nil context should render empty, got %q", got)
	}
	if got := memoryctx.Render(&domain.MemoryContext{}); got != "" {
		t.Fatalf("empty context should render empty, got %q", got)
	}
}
