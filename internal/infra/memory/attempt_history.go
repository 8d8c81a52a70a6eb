package memory

import (
	"context"
	"sync"

	"xforce-progression/internal/domain"
)

// AttemptHistory keeps scored quiz attempts per user.
type AttemptHistory struct {
	mu       sync.RWMutex
	attempts map[string][]domain.QuizAttempt
}

func NewAttemptHistory() *AttemptHistory {
	return &AttemptHistory{attempts: make(map[string][]domain.QuizAttempt)}
}

func (h *AttemptHistory) RecordAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	h.mu.Lock()
	h.attempts[attempt.UserID] = append(h.attempts[attempt.UserID], attempt)
	h.mu.Unlock()
	return nil
}

func (h *AttemptHistory) CountAttempts(_ context.Context, userID string, filter domain.AttemptFilter) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, a := range h.attempts[userID] {
		if filter.Matches(a.PercentageScore, a.Passed, a.Difficulty) {
			n++
		}
	}
	return n, nil
}

// Attempts returns a copy of the user's attempts in record order.
func (h *AttemptHistory) Attempts(userID string) []domain.QuizAttempt {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]domain.QuizAttempt(nil), h.attempts[userID]...)
}
