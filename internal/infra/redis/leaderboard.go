package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"xforce-progression/internal/domain"
)

const leaderboardKey = "progression:leaderboard:points"

// Leaderboard ranks users by points in a sorted set.
type Leaderboard struct {
	client *redis.Client
	now    func() time.Time
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client, now: time.Now}
}

func (l *Leaderboard) SetPoints(ctx context.Context, userID string, points int) error {
	if err := l.client.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(points), Member: userID}).Err(); err != nil {
		return fmt.Errorf("leaderboard zadd: %w", err)
	}
	return nil
}

// Top returns the n highest scores. Ties follow Redis ordering (member descending).
func (l *Leaderboard) Top(ctx context.Context, n int) (domain.Leaderboard, error) {
	if n <= 0 {
		n = 10
	}
	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("leaderboard range: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		userID, _ := m.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{
			Rank:   i + 1,
			UserID: userID,
			Points: int(m.Score),
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: l.now()}, nil
}
