package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/progression"
)

// ActivityLedger stores one row per user and UTC calendar day.
type ActivityLedger struct {
	db *bun.DB
}

func NewActivityLedger(db *bun.DB) *ActivityLedger {
	return &ActivityLedger{db: db}
}

func (l *ActivityLedger) WasActiveOn(ctx context.Context, userID string, day time.Time) (bool, error) {
	exists, err := l.db.NewSelect().
		Model((*ActivityRow)(nil)).
		Where("user_id = ?", userID).
		Where("day = ?::date", dayString(day)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check activity: %w", err)
	}
	return exists, nil
}

// RecordActivity upserts the day's row, keeping the latest activity time.
func (l *ActivityLedger) RecordActivity(ctx context.Context, userID string, at time.Time) error {
	row := &ActivityRow{UserID: userID, Day: progression.CalendarDay(at), LastActivityAt: at.UTC()}
	_, err := l.db.NewInsert().
		Model(row).
		Value("day", "?::date", dayString(at)).
		On("CONFLICT (user_id, day) DO UPDATE").
		Set("last_activity_at = GREATEST(al.last_activity_at, EXCLUDED.last_activity_at)").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Entries returns the user's ledger ordered by day.
func (l *ActivityLedger) Entries(ctx context.Context, userID string) ([]domain.ActivityLedgerEntry, error) {
	var rows []ActivityRow
	err := l.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("day ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]domain.ActivityLedgerEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ActivityLedgerEntry{UserID: r.UserID, Day: r.Day.UTC(), LastActivityAt: r.LastActivityAt.UTC()})
	}
	return out, nil
}

func dayString(t time.Time) string {
	return progression.CalendarDay(t).Format("2006-01-02")
}
