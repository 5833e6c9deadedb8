// Package audit appends one JSON line per completed turn to a per-session
// log file. The log is an operator-facing record of what the player said
// and what the narrator answered; gameplay never reads it back.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type JSONLLog struct {
	dir string
	mu  sync.Mutex
}

// NewJSONLLog creates the audit directory if needed.
func NewJSONLLog(dir string) (*JSONLLog, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &JSONLLog{dir: dir}, nil
}

// Append writes one turn record to <dir>/<session_id>.jsonl.
func (l *JSONLLog) Append(_ context.Context, rec *domain.TurnRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, rec.SessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}
