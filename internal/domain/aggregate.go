package domain

import "time"

// UserAggregate holds the running progression totals for one user.
//
// Invariants kept by every writer: QuizPointsEarned <= Points, Level equals
// the level derived from XP, and Achievements only grows.
type UserAggregate struct {
	UserID                      string         `json:"userId"`
	XP                          int            `json:"xp"`
	Points                      int            `json:"points"`
	QuizPointsEarned            int            `json:"quizPointsEarned"`
	Level                       int            `json:"level"`
	QuizCompletedCount          int            `json:"quizCompletedCount"`
	QuizTotalPercentageScoreSum int            `json:"quizTotalPercentageScoreSum"`
	Streak                      int            `json:"streak"`
	LastActiveAt                *time.Time     `json:"lastActiveAt,omitempty"`
	Achievements                AchievementSet `json:"achievements"`
	// Version is bumped on every successful write and used for optimistic concurrency.
	Version int64 `json:"version"`
}

// NewUserAggregate returns the starting state of a freshly provisioned user.
func NewUserAggregate(userID string) UserAggregate {
	return UserAggregate{
		UserID:       userID,
		Level:        1,
		Achievements: AchievementSet{},
	}
}

// Clone returns a deep copy safe to mutate.
func (a UserAggregate) Clone() UserAggregate {
	out := a
	out.Achievements = a.Achievements.Clone()
	if a.LastActiveAt != nil {
		t := *a.LastActiveAt
		out.LastActiveAt = &t
	}
	return out
}

// AverageScore returns the mean percentage score across completed quizzes.
func (a UserAggregate) AverageScore() float64 {
	if a.QuizCompletedCount == 0 {
		return 0
	}
	return float64(a.QuizTotalPercentageScoreSum) / float64(a.QuizCompletedCount)
}

// AggregateDelta is an additive change to a user's counters.
type AggregateDelta struct {
	XP               int `json:"xp"`
	Points           int `json:"points"`
	QuizPointsEarned int `json:"quizPointsEarned"`
	QuizCompleted    int `json:"quizCompleted"`
	PercentageSum    int `json:"percentageSum"`
}

// IsZero reports whether the delta changes nothing.
func (d AggregateDelta) IsZero() bool {
	return d == AggregateDelta{}
}

// AddTo applies the counters of d to agg. Level is left to the caller.
func (d AggregateDelta) AddTo(agg *UserAggregate) {
	agg.XP += d.XP
	agg.Points += d.Points
	agg.QuizPointsEarned += d.QuizPointsEarned
	agg.QuizCompletedCount += d.QuizCompleted
	agg.QuizTotalPercentageScoreSum += d.PercentageSum
}

// AchievementSet is the owned set of unlocked achievement ids with their unlock times.
type AchievementSet map[string]time.Time

// Has reports whether id is unlocked.
func (s AchievementSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add records id as unlocked at the given time. Existing entries are never
// overwritten; the return value reports whether id was newly added.
func (s AchievementSet) Add(id string, at time.Time) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = at.UTC()
	return true
}

// UnlockedAt returns the unlock time of id.
func (s AchievementSet) UnlockedAt(id string) (time.Time, bool) {
	t, ok := s[id]
	return t, ok
}

// Clone returns a copy of the set.
func (s AchievementSet) Clone() AchievementSet {
	out := make(AchievementSet, len(s))
	for id, t := range s {
		out[id] = t
	}
	return out
}
