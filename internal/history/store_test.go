package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"itassist/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// --- Conversations ---

func TestConversation_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := domain.Conversation{ID: "conv-1", Title: "disk troubleshooting", Model: "llama3.2"}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected conversation, got nil")
	}
	if got.Title != "disk troubleshooting" || got.Model != "llama3.2" {
		t.Fatalf("unexpected conversation: %+v", got)
	}
}

func TestConversation_GetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetConversation(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing conversation")
	}
}

func TestConversation_CreateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := domain.Conversation{ID: "conv-1", Title: "first"}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create: %v", err)
	}
	conv.Title = "second"
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create again: %v", err)
	}

	got, err := store.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "first" {
		t.Fatalf("second create should be ignored, got title %q", got.Title)
	}
}

func TestListConversations_MostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		conv := domain.Conversation{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateConversation(ctx, conv); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	convs, err := store.ListConversations(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2, got %d", len(convs))
	}
	if convs[0].ID != "new" || convs[1].ID != "mid" {
		t.Fatalf("unexpected order: %s, %s", convs[0].ID, convs[1].ID)
	}
}

// --- Messages ---

func TestMessages_RoundTripChronological(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.Conversation{ID: "conv-1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, m := range []domain.MessageRecord{
		{Role: "user", Content: "check disk space"},
		{Role: "assistant", Content: "run df -h"},
		{Role: "user", Content: "thanks"},
	} {
		if err := store.AddMessage(ctx, "conv-1", m); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	msgs, err := store.GetMessages(ctx, "conv-1", 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "check disk space" || msgs[2].Content != "thanks" {
		t.Fatalf("messages not chronological: %+v", msgs)
	}
}

func TestGetMessages_LimitKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.Conversation{ID: "conv-1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, content := range []string{"one", "two", "three", "four"} {
		if err := store.AddMessage(ctx, "conv-1", domain.MessageRecord{Role: "user", Content: content}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	msgs, err := store.GetMessages(ctx, "conv-1", 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "three" || msgs[1].Content != "four" {
		t.Fatalf("limit should keep newest messages: %+v", msgs)
	}
}

// --- Audit ---

func TestRecordAudit_WithExecution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := domain.PipelineRecord{
		Candidate: domain.Candidate{Text: "df -h", Index: 0, Rule: "fence"},
		Tier:      domain.TierSafe,
		RuleID:    domain.NoRuleMatched,
		Decision:  domain.DecisionApproved,
		Execution: &domain.ExecutionResult{
			Outcome:  domain.OutcomeCompleted,
			ExitCode: 0,
			Duration: 120 * time.Millisecond,
		},
	}
	if err := store.RecordAudit(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	recs, err := store.ListAuditRecords(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	got := recs[0]
	if got.Command != "df -h" || got.Tier != "safe" || got.Decision != "approved" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Outcome != "completed" || got.ExitCode != 0 || got.DurationMs != 120 {
		t.Fatalf("execution fields lost: %+v", got)
	}
}

func TestRecordAudit_DeniedHasNoOutcome(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := domain.PipelineRecord{
		Candidate: domain.Candidate{Text: "rm -rf /", Index: 0, Rule: "fence"},
		Tier:      domain.TierBlocked,
		RuleID:    "blocked.rm-root",
		Decision:  domain.DecisionDenied,
	}
	if err := store.RecordAudit(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	recs, err := store.ListAuditRecords(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Outcome != "" {
		t.Fatalf("denied record should have empty outcome, got %q", recs[0].Outcome)
	}
	if recs[0].RuleID != "blocked.rm-root" {
		t.Fatalf("rule id lost: %q", recs[0].RuleID)
	}
}

func TestListAuditRecords_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, cmd := range []string{"uptime", "df -h", "free -h"} {
		rec := domain.PipelineRecord{
			Candidate: domain.Candidate{Text: cmd, Index: i, Rule: "fence"},
			Tier:      domain.TierSafe,
			RuleID:    domain.NoRuleMatched,
			Decision:  domain.DecisionApproved,
		}
		if err := store.RecordAudit(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recs, err := store.ListAuditRecords(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2, got %d", len(recs))
	}
	if recs[0].Command != "free -h" || recs[1].Command != "df -h" {
		t.Fatalf("unexpected order: %q, %q", recs[0].Command, recs[1].Command)
	}
}
