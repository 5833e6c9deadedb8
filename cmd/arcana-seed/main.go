// Command arcana-seed loads the starter world template into the graph
// store and embeds the rulebook corpus into the rule index. Run it once
// before starting the API, and again after editing the corpus.
package main

import (
	"context"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/arcana-engine/internal/adapters/llm"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/graph"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/vector"
	"github.com/PabloGalante/arcana-engine/internal/config"
	"github.com/PabloGalante/arcana-engine/internal/dice"
	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/seed"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()
	cfg := config.Load()

	var embedder domain.Embedder
	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK embedder; rule retrieval quality will be poor")
		embedder = llm.NewMockEmbedder()
	} else {
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.ModelName, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
		embedder = client
	}

	graphStore, err := graph.Open(cfg.DBPath, dice.New())
	if err != nil {
		log.Fatalf("error opening graph store: %v", err)
	}
	defer graphStore.Close()

	nodes, edges := seed.WorldNodes(), seed.WorldEdges()
	if err := graphStore.SeedTemplate(ctx, nodes, edges); err != nil {
		log.Fatalf("error seeding world template: %v", err)
	}
	log.Printf("[WORLD] Seeded template: %d nodes, %d edges", len(nodes), len(edges))

	vecStore, err := vector.Open(strings.TrimSuffix(cfg.DBPath, ".db") + "_vectors.db")
	if err != nil {
		log.Fatalf("error opening vector store: %v", err)
	}
	defer vecStore.Close()

	docs := seed.RuleDocs()
	for _, doc := range docs {
		embedding, err := embedder.Embed(ctx, seed.EmbeddingText(doc))
		if err != nil {
			log.Fatalf("error embedding rule %s: %v", doc.ID, err)
		}
		doc.Embedding = embedding

		if err := vecStore.UpsertRule(ctx, doc); err != nil {
			log.Fatalf("error writing rule %s: %v", doc.ID, err)
		}
	}
	log.Printf("[RULES] Indexed %d rule documents", len(docs))
}
