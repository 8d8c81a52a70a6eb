package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"xforce-progression/internal/domain"
)

func TestAggregateStoreVersionedWrite(t *testing.T) {
	ctx := context.Background()
	store := NewAggregateStore()

	if _, err := store.Read(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	created, err := store.Create(ctx, "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Level != 1 || created.Version != 0 {
		t.Fatalf("unexpected fresh aggregate %+v", created)
	}

	first := created.Clone()
	first.XP = 50
	stored, err := store.Write(ctx, first)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if stored.Version != 1 {
		t.Fatalf("expected version 1, got %d", stored.Version)
	}

	stale := created.Clone()
	stale.XP = 10
	if _, err := store.Write(ctx, stale); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	again, _ := store.Create(ctx, "u1")
	if again.XP != 50 {
		t.Fatalf("create must not reset an existing user, got %+v", again)
	}
}

func TestAggregateStoreReadIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewAggregateStore()
	_, _ = store.Create(ctx, "u1")

	agg, _ := store.Read(ctx, "u1")
	agg.Achievements.Add("leak", time.Now())

	again, _ := store.Read(ctx, "u1")
	if again.Achievements.Has("leak") {
		t.Fatalf("mutating a read copy must not affect the store")
	}
}

func TestAggregateStoreApplyDeltaRelevels(t *testing.T) {
	ctx := context.Background()
	store := NewAggregateStore()
	_, _ = store.Create(ctx, "u1")

	agg, err := store.ApplyDelta(ctx, "u1", domain.AggregateDelta{XP: 150, Points: 18, QuizPointsEarned: 18, QuizCompleted: 1, PercentageSum: 100})
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if agg.Level != 2 || agg.Points != 18 || agg.QuizCompletedCount != 1 || agg.Version != 1 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
	if _, err := store.ApplyDelta(ctx, "ghost", domain.AggregateDelta{XP: 1}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestActivityLedgerDays(t *testing.T) {
	ctx := context.Background()
	ledger := NewActivityLedger()
	morning := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := morning.Add(12 * time.Hour)

	_ = ledger.RecordActivity(ctx, "u1", evening)
	_ = ledger.RecordActivity(ctx, "u1", morning)

	ok, _ := ledger.WasActiveOn(ctx, "u1", morning)
	if !ok {
		t.Fatalf("expected activity on the day")
	}
	if ok, _ := ledger.WasActiveOn(ctx, "u1", morning.AddDate(0, 0, -1)); ok {
		t.Fatalf("expected no activity the day before")
	}
	entries := ledger.Entries("u1")
	if len(entries) != 1 || !entries[0].LastActivityAt.Equal(evening) {
		t.Fatalf("expected single entry keeping the latest time, got %+v", entries)
	}
}
