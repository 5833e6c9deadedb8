package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/arcana-engine/internal/app/turn"
	"github.com/PabloGalante/arcana-engine/internal/domain"
	"github.com/PabloGalante/arcana-engine/internal/observability"
)

type Server struct {
	svc *turn.Service
}

func NewServer(svc *turn.Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	// /play/start_session → create session (POST)
	mux.HandleFunc("/play/start_session", s.handleStartSession)

	// /play/step → run one turn (POST)
	mux.HandleFunc("/play/step", s.handleStep)

	// /play/session/{id}/stats → GET: current stats + inventory
	mux.HandleFunc("/play/session/", s.handleSessionWithID)

	mux.HandleFunc("/healthz", s.handleHealthz)

	return chainMiddlewares(mux, withCORS, withLogging)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type startSessionRequest struct {
	PlayerName string `json:"player_name,omitempty"`
}

type startSessionResponse struct {
	SessionID string        `json:"session_id"`
	Scene     *domain.Scene `json:"scene"`
	CreatedAt time.Time     `json:"created_at"`
}

type stepRequest struct {
	SessionID   string `json:"session_id"`
	PlayerInput string `json:"player_input"`
}

type stepResponse struct {
	RoundNumber int                 `json:"round_number"`
	Scene       *domain.Scene       `json:"scene"`
	PlayerStats *domain.PlayerStats `json:"player_stats,omitempty"`
	RuleOutcome string              `json:"rule_outcome,omitempty"`
	ActionLog   map[string]any      `json:"action_log,omitempty"`
}

type statsResponse struct {
	SessionID   string                 `json:"session_id"`
	Round       int                    `json:"round"`
	PlayerStats *domain.PlayerStats    `json:"player_stats"`
	Inventory   []domain.InventoryItem `json:"inventory"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	// An empty body is fine; the player can stay anonymous until
	// character creation.
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.StartSession(r.Context(), turn.StartSessionInput{PlayerName: req.PlayerName})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID: string(out.Session.ID),
		Scene:     out.Scene,
		CreatedAt: out.Session.CreatedAt,
	})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		badRequest(w, "session_id is required")
		return
	}
	if strings.TrimSpace(req.PlayerInput) == "" {
		badRequest(w, "player_input is required")
		return
	}

	out, err := s.svc.ProcessTurn(r.Context(), turn.ProcessTurnInput{
		SessionID:   domain.SessionID(req.SessionID),
		PlayerInput: req.PlayerInput,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stepResponse{
		RoundNumber: out.RoundNumber,
		Scene:       out.Scene,
		PlayerStats: out.Stats,
		RuleOutcome: out.RuleResult,
		ActionLog:   out.ActionLog,
	})
}

// /play/session/{id}/stats
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/play/session/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "stats" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	out, err := s.svc.SessionState(r.Context(), domain.SessionID(parts[0]))
	if err != nil {
		writeError(w, r, err)
		return
	}

	inventory := out.Inventory
	if inventory == nil {
		inventory = []domain.InventoryItem{}
	}

	writeJSON(w, http.StatusOK, statsResponse{
		SessionID:   string(out.Session.ID),
		Round:       out.Session.Round,
		PlayerStats: out.Stats,
		Inventory:   inventory,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidState):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		internalError(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	// The client gets a generic 500; the detail goes to the log under
	// the request id.
	observability.LoggerFromContext(r.Context()).Error("request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
