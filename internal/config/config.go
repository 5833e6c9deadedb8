package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

type Config struct {
	Mode Mode

	Port string

	GeminiAPIKey   string
	ModelName      string
	EmbeddingModel string

	DBPath   string
	AuditDir string

	StorageBackend string // "memory" or "firestore" (session history)
	GCPProjectID   string

	UseMockLLM bool

	// TurnTimeout bounds the wall-clock cost of a single turn.
	TurnTimeout time.Duration
	// MaxToolRounds caps narrator<->tools round trips per turn.
	MaxToolRounds int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

// Load reads all env vars and builds the config
func Load() *Config {
	modeStr := getEnv("ARCANA_MODE", "local")
	var mode Mode
	switch modeStr {
	case "cloud":
		mode = ModeCloud
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("ARCANA_PORT", "8080"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		ModelName:      getEnv("ARCANA_MODEL_NAME", "gemini-2.5-flash"),
		EmbeddingModel: getEnv("ARCANA_EMBEDDING_MODEL", "gemini-embedding-001"),

		DBPath:   getEnv("ARCANA_DB_PATH", "arcana.db"),
		AuditDir: getEnv("ARCANA_AUDIT_DIR", "logs"),

		StorageBackend: getEnv("ARCANA_STORAGE_BACKEND", "memory"),
		GCPProjectID:   getEnv("ARCANA_GCP_PROJECT", ""),

		UseMockLLM: getBoolEnv("ARCANA_USE_MOCK_LLM", mode == ModeLocal),

		TurnTimeout:   time.Duration(getIntEnv("ARCANA_TURN_TIMEOUT_SECONDS", 90)) * time.Second,
		MaxToolRounds: getIntEnv("ARCANA_MAX_TOOL_ROUNDS", 6),
	}

	if !cfg.UseMockLLM && cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY must be set unless ARCANA_USE_MOCK_LLM=1")
	}
	if cfg.StorageBackend == "firestore" && cfg.GCPProjectID == "" {
		log.Fatal("ARCANA_GCP_PROJECT must be set for the firestore backend")
	}

	return cfg
}
