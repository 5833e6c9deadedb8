package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

// HistoryStore keeps per-session conversation transcripts. ReplaceHistory
// swaps the whole transcript at once, which is how the turn service
// persists the trimmed view of each completed turn.
type HistoryStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]*domain.Message
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		messages: make(map[domain.SessionID][]*domain.Message),
	}
}

func (s *HistoryStore) ReplaceHistory(_ context.Context, sessionID domain.SessionID, msgs []*domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[sessionID] = cloneMessages(msgs)
	return nil
}

// GetHistory returns the transcript in order. An unknown session yields an
// empty transcript, not an error; a fresh session simply has no history.
func (s *HistoryStore) GetHistory(_ context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneMessages(s.messages[sessionID]), nil
}

func cloneMessages(in []*domain.Message) []*domain.Message {
	out := make([]*domain.Message, 0, len(in))
	for _, m := range in {
		cp := *m
		out = append(out, &cp)
	}
	return out
}
