package progression

import (
	"context"
	"fmt"
	"time"

	"xforce-progression/internal/domain"
)

// ActivityLedger is the append-only per-day activity record streaks are derived from.
type ActivityLedger interface {
	WasActiveOn(ctx context.Context, userID string, day time.Time) (bool, error)
	RecordActivity(ctx context.Context, userID string, at time.Time) error
}

// StreakTracker maintains the consecutive-day activity streak of a user.
type StreakTracker struct {
	ledger ActivityLedger
}

func NewStreakTracker(ledger ActivityLedger) *StreakTracker {
	return &StreakTracker{ledger: ledger}
}

// CalendarDay truncates t to midnight UTC.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordActivity records activity at time at and advances agg's streak.
// It returns the resulting streak and whether agg was changed. Activity on a
// day already counted, or on a day before the last counted one, leaves agg as is.
func (t *StreakTracker) RecordActivity(ctx context.Context, agg *domain.UserAggregate, at time.Time) (int, bool, error) {
	today := CalendarDay(at)
	if err := t.ledger.RecordActivity(ctx, agg.UserID, at); err != nil {
		return agg.Streak, false, fmt.Errorf("record activity: %w", err)
	}

	if agg.LastActiveAt != nil && !CalendarDay(*agg.LastActiveAt).Before(today) {
		return agg.Streak, false, nil
	}

	yesterday := today.AddDate(0, 0, -1)
	activeYesterday, err := t.ledger.WasActiveOn(ctx, agg.UserID, yesterday)
	if err != nil {
		return agg.Streak, false, fmt.Errorf("check activity: %w", err)
	}

	agg.Streak = NextStreak(agg.Streak, activeYesterday)
	stamp := at.UTC()
	agg.LastActiveAt = &stamp
	return agg.Streak, true, nil
}

// NextStreak extends the streak when the user was active yesterday and restarts it otherwise.
func NextStreak(current int, activeYesterday bool) int {
	if activeYesterday {
		return current + 1
	}
	return 1
}

// EffectiveStreak returns agg's streak as of now. A streak whose last active day
// is before yesterday has lapsed and counts as 0; the stored value is only
// reset by the next activity.
func EffectiveStreak(agg domain.UserAggregate, now time.Time) int {
	if agg.LastActiveAt == nil {
		return 0
	}
	yesterday := CalendarDay(now).AddDate(0, 0, -1)
	if CalendarDay(*agg.LastActiveAt).Before(yesterday) {
		return 0
	}
	return agg.Streak
}
