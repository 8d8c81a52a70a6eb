package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"xforce-progression/internal/domain"
)

// AggregateStore keeps user aggregates in Redis.
// Counters are stored as:     HSET progression:user:{userID} xp|points|...|version
// Unlocks are stored as:      HSET progression:user:{userID}:achievements {achievementID} {unlockedAt}
// Every write bumps version; writers WATCH the counter hash to detect concurrent updates.
type AggregateStore struct {
	client *redis.Client
}

func NewAggregateStore(client *redis.Client) *AggregateStore {
	return &AggregateStore{client: client}
}

const (
	fieldXP               = "xp"
	fieldPoints           = "points"
	fieldQuizPointsEarned = "quizPointsEarned"
	fieldLevel            = "level"
	fieldQuizCompleted    = "quizCompletedCount"
	fieldPercentageSum    = "quizTotalPercentageScoreSum"
	fieldStreak           = "streak"
	fieldLastActiveAt     = "lastActiveAt"
	fieldVersion          = "version"
)

// applyDeltaScript adds a delta atomically and derives the level from the new XP
// with the same formula as progression.LevelForXP.
var applyDeltaScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
	return false
end
local xp = redis.call('HINCRBY', key, 'xp', ARGV[1])
redis.call('HINCRBY', key, 'points', ARGV[2])
redis.call('HINCRBY', key, 'quizPointsEarned', ARGV[3])
redis.call('HINCRBY', key, 'quizCompletedCount', ARGV[4])
redis.call('HINCRBY', key, 'quizTotalPercentageScoreSum', ARGV[5])
local level = 1
if xp > 0 then
	local n = math.floor(math.sqrt(xp / 100))
	while n > 0 and 100 * n * n > xp do n = n - 1 end
	while 100 * (n + 1) * (n + 1) <= xp do n = n + 1 end
	level = n + 1
end
redis.call('HSET', key, 'level', level)
redis.call('HINCRBY', key, 'version', 1)
return redis.call('HGETALL', key)
`)

func (s *AggregateStore) Read(ctx context.Context, userID string) (domain.UserAggregate, error) {
	pipe := s.client.Pipeline()
	countersCmd := pipe.HGetAll(ctx, userKey(userID))
	achievementsCmd := pipe.HGetAll(ctx, achievementsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.UserAggregate{}, fmt.Errorf("read aggregate: %w", err)
	}
	counters := countersCmd.Val()
	if len(counters) == 0 {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	return decodeAggregate(userID, counters, achievementsCmd.Val())
}

func (s *AggregateStore) Write(ctx context.Context, agg domain.UserAggregate) (domain.UserAggregate, error) {
	key := userKey(agg.UserID)
	next := agg.Clone()
	next.Version = agg.Version + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if current != agg.Version {
			return domain.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeCounters(next))
			for id, at := range next.Achievements {
				// HSETNX keeps the first unlock time.
				pipe.HSetNX(ctx, achievementsKey(agg.UserID), id, at.UTC().Format(time.RFC3339Nano))
			}
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return domain.UserAggregate{}, domain.ErrVersionConflict
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrUserNotFound):
		return domain.UserAggregate{}, err
	case err != nil:
		return domain.UserAggregate{}, fmt.Errorf("write aggregate: %w", err)
	}
	return next, nil
}

func (s *AggregateStore) ApplyDelta(ctx context.Context, userID string, delta domain.AggregateDelta) (domain.UserAggregate, error) {
	res, err := applyDeltaScript.Run(ctx, s.client, []string{userKey(userID)},
		delta.XP, delta.Points, delta.QuizPointsEarned, delta.QuizCompleted, delta.PercentageSum).Slice()
	if errors.Is(err, redis.Nil) {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserAggregate{}, fmt.Errorf("apply delta: %w", err)
	}

	counters := make(map[string]string, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		counters[fmt.Sprint(res[i])] = fmt.Sprint(res[i+1])
	}
	achievements, err := s.client.HGetAll(ctx, achievementsKey(userID)).Result()
	if err != nil {
		return domain.UserAggregate{}, fmt.Errorf("read achievements: %w", err)
	}
	return decodeAggregate(userID, counters, achievements)
}

func (s *AggregateStore) Create(ctx context.Context, userID string) (domain.UserAggregate, error) {
	key := userKey(userID)
	fresh := encodeCounters(domain.NewUserAggregate(userID))
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, value := range fresh {
			pipe.HSetNX(ctx, key, field, value)
		}
		return nil
	})
	if err != nil {
		return domain.UserAggregate{}, fmt.Errorf("create aggregate: %w", err)
	}
	return s.Read(ctx, userID)
}

func userKey(userID string) string {
	return "progression:user:" + userID
}

func achievementsKey(userID string) string {
	return "progression:user:" + userID + ":achievements"
}

func encodeCounters(agg domain.UserAggregate) map[string]interface{} {
	lastActive := ""
	if agg.LastActiveAt != nil {
		lastActive = agg.LastActiveAt.UTC().Format(time.RFC3339Nano)
	}
	return map[string]interface{}{
		fieldXP:               agg.XP,
		fieldPoints:           agg.Points,
		fieldQuizPointsEarned: agg.QuizPointsEarned,
		fieldLevel:            agg.Level,
		fieldQuizCompleted:    agg.QuizCompletedCount,
		fieldPercentageSum:    agg.QuizTotalPercentageScoreSum,
		fieldStreak:           agg.Streak,
		fieldLastActiveAt:     lastActive,
		fieldVersion:          agg.Version,
	}
}

func decodeAggregate(userID string, counters, achievements map[string]string) (domain.UserAggregate, error) {
	agg := domain.NewUserAggregate(userID)
	ints := []struct {
		field string
		dst   *int
	}{
		{fieldXP, &agg.XP},
		{fieldPoints, &agg.Points},
		{fieldQuizPointsEarned, &agg.QuizPointsEarned},
		{fieldLevel, &agg.Level},
		{fieldQuizCompleted, &agg.QuizCompletedCount},
		{fieldPercentageSum, &agg.QuizTotalPercentageScoreSum},
		{fieldStreak, &agg.Streak},
	}
	for _, f := range ints {
		raw, ok := counters[f.field]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return domain.UserAggregate{}, fmt.Errorf("decode %s: %w", f.field, err)
		}
		*f.dst = v
	}
	if raw := counters[fieldVersion]; raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.UserAggregate{}, fmt.Errorf("decode version: %w", err)
		}
		agg.Version = v
	}
	if raw := counters[fieldLastActiveAt]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.UserAggregate{}, fmt.Errorf("decode lastActiveAt: %w", err)
		}
		agg.LastActiveAt = &t
	}
	for id, raw := range achievements {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.UserAggregate{}, fmt.Errorf("decode achievement %s: %w", id, err)
		}
		agg.Achievements.Add(id, t)
	}
	return agg, nil
}
