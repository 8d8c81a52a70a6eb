package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/progression"
)

func TestAggregateStoreRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewAggregateStore(client)
	ctx := context.Background()

	if _, err := store.Read(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	created, err := store.Create(ctx, "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Level != 1 || created.Version != 0 || len(created.Achievements) != 0 {
		t.Fatalf("unexpected fresh aggregate %+v", created)
	}

	unlockedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lastActive := unlockedAt.Add(-time.Hour)
	next := created.Clone()
	next.XP, next.Points, next.QuizPointsEarned, next.Level = 125, 118, 108, 2
	next.QuizCompletedCount, next.QuizTotalPercentageScoreSum, next.Streak = 1, 100, 4
	next.LastActiveAt = &lastActive
	next.Achievements.Add("points-100", unlockedAt)

	stored, err := store.Write(ctx, next)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if stored.Version != 1 {
		t.Fatalf("expected version 1, got %d", stored.Version)
	}

	read, err := store.Read(ctx, "u1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if read.XP != 125 || read.Points != 118 || read.Level != 2 || read.Streak != 4 || read.Version != 1 {
		t.Fatalf("unexpected read %+v", read)
	}
	if read.LastActiveAt == nil || !read.LastActiveAt.Equal(lastActive) {
		t.Fatalf("lastActiveAt not kept: %v", read.LastActiveAt)
	}
	if at, ok := read.Achievements.UnlockedAt("points-100"); !ok || !at.Equal(unlockedAt) {
		t.Fatalf("unlock time not kept: %v %v", at, ok)
	}

	again, _ := store.Create(ctx, "u1")
	if again.XP != 125 {
		t.Fatalf("create must not reset existing user, got %+v", again)
	}
}

func TestAggregateStoreRejectsStaleVersion(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewAggregateStore(client)
	ctx := context.Background()

	base, _ := store.Create(ctx, "u1")
	winner := base.Clone()
	winner.XP = 10
	if _, err := store.Write(ctx, winner); err != nil {
		t.Fatalf("write: %v", err)
	}

	loser := base.Clone()
	loser.XP = 20
	if _, err := store.Write(ctx, loser); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := store.Write(ctx, domain.NewUserAggregate("ghost")); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAggregateStoreKeepsFirstUnlockTime(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewAggregateStore(client)
	ctx := context.Background()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	agg, _ := store.Create(ctx, "u1")
	agg.Achievements.Add("a", first)
	agg, _ = store.Write(ctx, agg)

	agg.Achievements["a"] = first.AddDate(0, 1, 0)
	if _, err := store.Write(ctx, agg); err != nil {
		t.Fatalf("write: %v", err)
	}
	read, _ := store.Read(ctx, "u1")
	if at, _ := read.Achievements.UnlockedAt("a"); !at.Equal(first) {
		t.Fatalf("unlock time overwritten: %v", at)
	}
}

func TestAggregateStoreApplyDelta(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewAggregateStore(client)
	ctx := context.Background()
	_, _ = store.Create(ctx, "u1")

	agg, err := store.ApplyDelta(ctx, "u1", domain.AggregateDelta{XP: 150, Points: 18, QuizPointsEarned: 18, QuizCompleted: 1, PercentageSum: 100})
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if agg.XP != 150 || agg.Level != 2 || agg.Points != 18 || agg.QuizCompletedCount != 1 || agg.Version != 1 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
	if _, err := store.ApplyDelta(ctx, "ghost", domain.AggregateDelta{XP: 1}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyDeltaLevelMatchesLevelForXP(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewAggregateStore(client)
	ctx := context.Background()
	_, _ = store.Create(ctx, "u1")

	xp := 0
	for _, step := range []int{1, 98, 1, 299, 1, 499, 1, 2500, 6599, 1} {
		xp += step
		agg, err := store.ApplyDelta(ctx, "u1", domain.AggregateDelta{XP: step})
		if err != nil {
			t.Fatalf("apply delta: %v", err)
		}
		if want := progression.LevelForXP(xp); agg.Level != want {
			t.Fatalf("xp=%d: level %d, want %d", xp, agg.Level, want)
		}
	}
}

func TestLeaderboardTop(t *testing.T) {
	_, client := newTestRedis(t)
	lb := NewLeaderboard(client)
	ctx := context.Background()

	_ = lb.SetPoints(ctx, "alice", 30)
	_ = lb.SetPoints(ctx, "bob", 50)
	_ = lb.SetPoints(ctx, "carol", 10)
	_ = lb.SetPoints(ctx, "alice", 60)

	top, err := lb.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top.Entries) != 2 || top.Entries[0].UserID != "alice" || top.Entries[0].Points != 60 || top.Entries[1].Rank != 2 {
		t.Fatalf("unexpected ranking %+v", top.Entries)
	}
}
