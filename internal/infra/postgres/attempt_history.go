package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"xforce-progression/internal/domain"
)

// AttemptHistory stores scored quiz attempts in quiz_attempts.
type AttemptHistory struct {
	db *bun.DB
}

func NewAttemptHistory(db *bun.DB) *AttemptHistory {
	return &AttemptHistory{db: db}
}

func (h *AttemptHistory) RecordAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	row := &AttemptRow{
		ID:               attempt.ID,
		UserID:           attempt.UserID,
		QuizID:           attempt.QuizID,
		PercentageScore:  attempt.PercentageScore,
		Passed:           attempt.Passed,
		Difficulty:       string(attempt.Difficulty),
		PointsAwarded:    attempt.PointsAwarded,
		XPAwarded:        attempt.XPAwarded,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		CreatedAt:        attempt.CreatedAt,
	}
	if _, err := h.db.NewInsert().Model(row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// CountAttempts counts the user's attempts matching every present part of filter.
func (h *AttemptHistory) CountAttempts(ctx context.Context, userID string, filter domain.AttemptFilter) (int, error) {
	q := h.db.NewSelect().
		Model((*AttemptRow)(nil)).
		Where("user_id = ?", userID)
	if filter.HasPassed {
		q = q.Where("passed = ?", filter.Passed)
	}
	if filter.HasMinScore {
		q = q.Where("percentage_score >= ?", filter.MinScore)
	}
	if filter.Difficulty != "" {
		q = q.Where("difficulty = ?", string(filter.Difficulty))
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}
