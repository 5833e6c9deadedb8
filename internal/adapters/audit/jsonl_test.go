package audit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/PabloGalante/arcana-engine/internal/adapters/audit"
	"github.com/PabloGalante/arcana-engine/internal/domain"
)

func TestAppendWritesOneLinePerTurn(t *testing.T) {
	dir := t.TempDir()
	log, err := audit.NewJSONLLog(dir)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}

	recs := []*domain.TurnRecord{
		{RoundNumber: 1, SessionID: "sess-1", PlayerInput: "I enter the tavern", NarrativeText: "The door creaks open."},
		{RoundNumber: 2, SessionID: "sess-1", PlayerInput: "I attack the goblin", NarrativeText: "Steel rings out.", RuleResult: "attack resolved"},
	}
	for _, rec := range recs {
		if err := log.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "sess-1.jsonl"))
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var got []domain.TurnRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec domain.TurnRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, rec)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].RoundNumber != 1 || got[1].RoundNumber != 2 {
		t.Fatalf("round numbers out of order: %+v", got)
	}
	if got[0].RuleResult != "" {
		t.Fatalf("rule result should be empty for turn 1: %q", got[0].RuleResult)
	}
	if got[1].RuleResult != "attack resolved" {
		t.Fatalf("rule result lost: %+v", got[1])
	}
}

func TestSessionsGetSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	log, err := audit.NewJSONLLog(dir)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}

	for _, sid := range []string{"sess-a", "sess-b"} {
		rec := &domain.TurnRecord{RoundNumber: 1, SessionID: sid, PlayerInput: "hello", NarrativeText: "hi"}
		if err := log.Append(context.Background(), rec); err != nil {
			t.Fatalf("append for %s: %v", sid, err)
		}
	}

	for _, name := range []string{"sess-a.jsonl", "sess-b.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected audit file %s: %v", name, err)
		}
	}
}
