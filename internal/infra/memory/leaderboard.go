package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"xforce-progression/internal/domain"
)

// Leaderboard ranks users by points in memory.
type Leaderboard struct {
	mu     sync.RWMutex
	now    func() time.Time
	points map[string]int
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{now: time.Now, points: make(map[string]int)}
}

func (l *Leaderboard) SetPoints(_ context.Context, userID string, points int) error {
	l.mu.Lock()
	l.points[userID] = points
	l.mu.Unlock()
	return nil
}

// Top returns the n highest scores; ties are ordered by user id.
func (l *Leaderboard) Top(_ context.Context, n int) (domain.Leaderboard, error) {
	l.mu.RLock()
	entries := make([]domain.LeaderboardEntry, 0, len(l.points))
	for userID, points := range l.points {
		entries = append(entries, domain.LeaderboardEntry{UserID: userID, Points: points})
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: l.now()}, nil
}
