package domain

import "time"

// EventType names a progression event emitted after a successful write.
type EventType string

const (
	EventQuizScored          EventType = "progression.quiz_scored"
	EventLevelUp             EventType = "progression.level_up"
	EventAchievementUnlocked EventType = "progression.achievement_unlocked"
	EventStreakUpdated       EventType = "progression.streak_updated"
)

// ProgressionEvent is delivered to notifiers (message bus, websocket clients).
type ProgressionEvent struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	UserID     string                 `json:"userId"`
	OccurredAt time.Time              `json:"occurredAt"`
	LevelUp    *LevelUpPayload        `json:"levelUp,omitempty"`
	Unlocked   *AchievementDefinition `json:"achievement,omitempty"`
	Quiz       *QuizScoredPayload     `json:"quiz,omitempty"`
	Streak     *int                   `json:"streak,omitempty"`
}

// LevelUpPayload carries the level transition.
type LevelUpPayload struct {
	From int `json:"from"`
	To   int `json:"to"`
	XP   int `json:"xp"`
}

// QuizScoredPayload summarises a scored quiz.
type QuizScoredPayload struct {
	QuizID          string `json:"quizId"`
	PercentageScore int    `json:"percentageScore"`
	Passed          bool   `json:"passed"`
	PointsAwarded   int    `json:"pointsAwarded"`
	XPAwarded       int    `json:"xpAwarded"`
}

// QuizOutcome is returned to the caller of a quiz submission.
type QuizOutcome struct {
	PercentageScore           int                   `json:"percentageScore"`
	Passed                    bool                  `json:"passed"`
	PointsAwarded             int                   `json:"pointsAwarded"`
	XPAwarded                 int                   `json:"xpAwarded"`
	NewlyUnlockedAchievements []UnlockedAchievement `json:"newlyUnlockedAchievements"`
	LeveledUp                 bool                  `json:"leveledUp"`
	Level                     int                   `json:"level"`
	PreviousLevel             int                   `json:"previousLevel"`
	Result                    QuizSubmissionResult  `json:"result"`
	// Persisted is false when aggregate effects could not be stored.
	Persisted bool `json:"persisted"`
}

// ActivityOutcome is returned to the caller of a login or activity event.
type ActivityOutcome struct {
	Streak                    int                   `json:"streak"`
	NewlyUnlockedAchievements []UnlockedAchievement `json:"newlyUnlockedAchievements"`
	LeveledUp                 bool                  `json:"leveledUp"`
	Level                     int                   `json:"level"`
	Persisted                 bool                  `json:"persisted"`
}

// LevelProgress is the display form of a user's position within a level.
type LevelProgress struct {
	Level        int     `json:"level"`
	XP           int     `json:"xp"`
	LevelFloorXP int     `json:"levelFloorXp"`
	NextLevelXP  int     `json:"nextLevelXp"`
	Fraction     float64 `json:"fraction"`
}

// ProgressionSnapshot is a read-only view of a user's progression.
type ProgressionSnapshot struct {
	Aggregate    UserAggregate `json:"aggregate"`
	Level        LevelProgress `json:"levelProgress"`
	AverageScore float64       `json:"averageScore"`
}
