// Package firestore implements the session and history stores on Cloud
// Firestore for deployments that outlive a single process. Game state,
// rules and memories stay in SQLite; only the conversational surface
// moves to the cloud backend.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (ARCANA_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	PlayerName     string    `firestore:"player_name"`
	Round          int       `firestore:"round"`
	AnchorEntityID string    `firestore:"anchor_entity_id"`
	Location       string    `firestore:"location"`
	CreatedAt      time.Time `firestore:"created_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

// messageDoc flattens tool payloads to JSON strings so arbitrary model
// arguments never fight Firestore's value typing.
type messageDoc struct {
	SessionID  string    `firestore:"session_id"`
	Role       string    `firestore:"role"`
	Text       string    `firestore:"text"`
	ToolCalls  string    `firestore:"tool_calls"`
	ToolName   string    `firestore:"tool_name"`
	ToolResult string    `firestore:"tool_result"`
	Seq        int       `firestore:"seq"`
	CreatedAt  time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	doc := sessionDoc{
		PlayerName:     session.PlayerName,
		Round:          session.Round,
		AnchorEntityID: session.AnchorEntityID,
		Location:       session.Location,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
	}

	_, err := s.sessionDoc(session.ID).Create(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	doc := map[string]interface{}{
		"player_name":      session.PlayerName,
		"round":            session.Round,
		"anchor_entity_id": session.AnchorEntityID,
		"location":         session.Location,
		"created_at":       session.CreatedAt,
		"updated_at":       session.UpdatedAt,
	}

	_, err := s.sessionDoc(session.ID).Set(ctx, doc, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return &domain.Session{
		ID:             id,
		PlayerName:     doc.PlayerName,
		Round:          doc.Round,
		AnchorEntityID: doc.AnchorEntityID,
		Location:       doc.Location,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

// ReplaceHistory writes the transcript under sequence-numbered document
// ids and deletes any leftover documents beyond the new length, so the
// stored history always matches the trimmed transcript exactly.
func (s *Store) ReplaceHistory(ctx context.Context, sessionID domain.SessionID, msgs []*domain.Message) error {
	batch := s.client.BulkWriter(ctx)

	keep := make(map[string]bool, len(msgs))
	for i, msg := range msgs {
		docID := fmt.Sprintf("msg-%05d", i)
		keep[docID] = true

		doc, err := encodeMessage(msg, i)
		if err != nil {
			return err
		}
		if _, err := batch.Set(s.messagesCol(sessionID).Doc(docID), doc); err != nil {
			return fmt.Errorf("firestore ReplaceHistory set: %w", err)
		}
	}

	iter := s.messagesCol(sessionID).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return fmt.Errorf("firestore ReplaceHistory list: %w", err)
		}
		if !keep[snap.Ref.ID] {
			if _, err := batch.Delete(snap.Ref); err != nil {
				return fmt.Errorf("firestore ReplaceHistory delete: %w", err)
			}
		}
	}

	batch.End()
	return nil
}

func (s *Store) GetHistory(ctx context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	iter := s.messagesCol(sessionID).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetHistory: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		msg, err := decodeMessage(snap.Ref.ID, &doc)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func encodeMessage(msg *domain.Message, seq int) (*messageDoc, error) {
	toolCalls := ""
	if len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("marshal tool calls: %w", err)
		}
		toolCalls = string(raw)
	}

	toolResult := ""
	if len(msg.ToolResult) > 0 {
		raw, err := json.Marshal(msg.ToolResult)
		if err != nil {
			return nil, fmt.Errorf("marshal tool result: %w", err)
		}
		toolResult = string(raw)
	}

	return &messageDoc{
		SessionID:  string(msg.SessionID),
		Role:       string(msg.Role),
		Text:       msg.Text,
		ToolCalls:  toolCalls,
		ToolName:   msg.ToolName,
		ToolResult: toolResult,
		Seq:        seq,
		CreatedAt:  msg.CreatedAt,
	}, nil
}

func decodeMessage(docID string, doc *messageDoc) (*domain.Message, error) {
	msg := &domain.Message{
		ID:        domain.MessageID(docID),
		SessionID: domain.SessionID(doc.SessionID),
		Role:      domain.Role(doc.Role),
		Text:      doc.Text,
		ToolName:  doc.ToolName,
		CreatedAt: doc.CreatedAt,
	}

	if doc.ToolCalls != "" {
		if err := json.Unmarshal([]byte(doc.ToolCalls), &msg.ToolCalls); err != nil {
			return nil, fmt.Errorf("unmarshal tool calls: %w", err)
		}
	}
	if doc.ToolResult != "" {
		if err := json.Unmarshal([]byte(doc.ToolResult), &msg.ToolResult); err != nil {
			return nil, fmt.Errorf("unmarshal tool result: %w", err)
		}
	}
	return msg, nil
}
