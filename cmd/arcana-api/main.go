package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/arcana-engine/internal/adapters/audit"
	httpadapter "github.com/PabloGalante/arcana-engine/internal/adapters/http"
	"github.com/PabloGalante/arcana-engine/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/arcana-engine/internal/adapters/storage/firestore"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/graph"
	memstore "github.com/PabloGalante/arcana-engine/internal/adapters/storage/memory"
	"github.com/PabloGalante/arcana-engine/internal/adapters/storage/vector"
	"github.com/PabloGalante/arcana-engine/internal/app/agentloop"
	"github.com/PabloGalante/arcana-engine/internal/app/memoryctx"
	"github.com/PabloGalante/arcana-engine/internal/app/rules"
	"github.com/PabloGalante/arcana-engine/internal/app/tools"
	"github.com/PabloGalante/arcana-engine/internal/app/turn"
	"github.com/PabloGalante/arcana-engine/internal/config"
	"github.com/PabloGalante/arcana-engine/internal/dice"
	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/seed"
)

func main() {
	ctx := context.Background()

	// Local overrides from .env, if present.
	_ = godotenv.Load()
	cfg := config.Load()

	// LLM: mock or Gemini by ENV (useful for dev)
	var (
		narrator domain.NarratorClient
		embedder domain.Embedder
	)
	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK narrator")
		narrator = llm.NewMockNarrator()
		embedder = llm.NewMockEmbedder()
	} else {
		log.Println("[LLM] Using Gemini narrator, model:", cfg.ModelName)
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.ModelName, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
		narrator = client
		embedder = client
	}

	// Game state graph (SQLite)
	graphStore, err := graph.Open(cfg.DBPath, dice.New())
	if err != nil {
		log.Fatalf("error opening graph store: %v", err)
	}
	defer graphStore.Close()

	if empty, err := graphStore.TemplateIsEmpty(ctx); err != nil {
		log.Fatalf("error checking world template: %v", err)
	} else if empty {
		log.Println("[WORLD] Template empty, seeding starter world (run arcana-seed for the rulebook)")
		if err := graphStore.SeedTemplate(ctx, seed.WorldNodes(), seed.WorldEdges()); err != nil {
			log.Fatalf("error seeding world template: %v", err)
		}
	}

	// Rule index and episodic memories (SQLite)
	vecStore, err := vector.Open(vectorDBPath(cfg.DBPath))
	if err != nil {
		log.Fatalf("error opening vector store: %v", err)
	}
	defer vecStore.Close()

	// Sessions and history: Firestore or Memory
	var sessionStore domain.SessionStore
	var historyStore domain.HistoryStore

	switch cfg.StorageBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore sessions (project=%s)", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		defer fsStore.Close()

		// 1 store, implements 2 interfaces
		sessionStore = fsStore
		historyStore = fsStore

	default:
		log.Println("[STORE] Using in-memory sessions")
		sessionStore = memstore.NewSessionStore()
		historyStore = memstore.NewHistoryStore()
	}

	auditLog, err := audit.NewJSONLLog(cfg.AuditDir)
	if err != nil {
		log.Fatalf("error initializing audit log: %v", err)
	}

	adjudicator := rules.NewPipeline(embedder, vecStore, narrator)
	dispatcher := tools.NewDispatcher(graphStore, adjudicator)
	loop := agentloop.New(narrator, dispatcher, cfg.MaxToolRounds)
	router := memoryctx.NewRouter(embedder, vecStore, graphStore)

	svc := turn.NewService(
		sessionStore, historyStore, graphStore,
		loop, router, embedder, vecStore, auditLog,
		cfg.TurnTimeout,
	)

	handler := httpadapter.NewServer(svc)

	addr := ":" + cfg.Port
	log.Println("Arcana API listening on", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}

// vectorDBPath keeps the vector tables in a sibling file so the graph db
// can be wiped independently.
func vectorDBPath(dbPath string) string {
	return strings.TrimSuffix(dbPath, ".db") + "_vectors.db"
}
