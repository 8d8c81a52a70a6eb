package domain

import "time"

// Trigger is the category of event or counter an achievement is keyed on.
type Trigger string

const (
	TriggerQuizPerfectScore Trigger = "quiz_perfect_score"
	TriggerQuizCompletion   Trigger = "quiz_completion"
	TriggerQuizPoints       Trigger = "quiz_points"
	TriggerForumPosts       Trigger = "forum_posts"
	TriggerForumReplies     Trigger = "forum_replies"
	TriggerForumBestAnswers Trigger = "forum_best_answers"
	TriggerResourceAccess   Trigger = "resource_access"
	TriggerStudyStreak      Trigger = "study_streak"
)

// QuizTriggers are evaluated after a quiz submission.
var QuizTriggers = []Trigger{TriggerQuizPerfectScore, TriggerQuizCompletion, TriggerQuizPoints}

// CommunityTriggers are keyed on counters owned by the forum and resource features.
var CommunityTriggers = []Trigger{TriggerForumPosts, TriggerForumReplies, TriggerForumBestAnswers, TriggerResourceAccess}

// AllTriggers lists every trigger in a stable order.
var AllTriggers = []Trigger{
	TriggerQuizPerfectScore,
	TriggerQuizCompletion,
	TriggerQuizPoints,
	TriggerForumPosts,
	TriggerForumReplies,
	TriggerForumBestAnswers,
	TriggerResourceAccess,
	TriggerStudyStreak,
}

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	for _, known := range AllTriggers {
		if t == known {
			return true
		}
	}
	return false
}

// AchievementCondition narrows when a trigger counts. Nil or zero fields are not applied.
type AchievementCondition struct {
	Passed     *bool      `json:"passed,omitempty" yaml:"passed,omitempty"`
	MinScore   *int       `json:"minScore,omitempty" yaml:"minScore,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	AccessType string     `json:"accessType,omitempty" yaml:"accessType,omitempty"`
}

// AttemptFilter is the part of a condition that applies to quiz attempts.
// It is comparable and usable as a map key.
type AttemptFilter struct {
	HasPassed   bool
	Passed      bool
	HasMinScore bool
	MinScore    int
	Difficulty  Difficulty
}

// AttemptFilter extracts the attempt-related filter from c. A nil condition filters nothing.
func (c *AchievementCondition) AttemptFilter() AttemptFilter {
	var f AttemptFilter
	if c == nil {
		return f
	}
	if c.Passed != nil {
		f.HasPassed = true
		f.Passed = *c.Passed
	}
	if c.MinScore != nil {
		f.HasMinScore = true
		f.MinScore = *c.MinScore
	}
	f.Difficulty = c.Difficulty
	return f
}

// Matches reports whether an attempt with the given outcome satisfies every present filter.
func (f AttemptFilter) Matches(percentageScore int, passed bool, difficulty Difficulty) bool {
	if f.HasPassed && passed != f.Passed {
		return false
	}
	if f.HasMinScore && percentageScore < f.MinScore {
		return false
	}
	if f.Difficulty != "" && difficulty != f.Difficulty {
		return false
	}
	return true
}

// AccessTypeFilter returns the resource access type filter, or "" for any.
func (c *AchievementCondition) AccessTypeFilter() string {
	if c == nil {
		return ""
	}
	return c.AccessType
}

// AchievementDefinition is a catalog entry. It is read-only to the engine.
type AchievementDefinition struct {
	ID           string                `json:"id" yaml:"id"`
	Name         string                `json:"name" yaml:"name"`
	Description  string                `json:"description" yaml:"description"`
	Trigger      Trigger               `json:"trigger" yaml:"trigger"`
	Requirement  float64               `json:"requirement" yaml:"requirement"`
	Condition    *AchievementCondition `json:"condition,omitempty" yaml:"condition,omitempty"`
	RewardXP     int                   `json:"rewardXp" yaml:"rewardXp"`
	RewardPoints int                   `json:"rewardPoints" yaml:"rewardPoints"`
	// Position is the catalog insertion order.
	Position int `json:"position" yaml:"position"`
}

// UnlockedAchievement is a newly awarded achievement as shown to the user.
type UnlockedAchievement struct {
	Achievement AchievementDefinition `json:"achievement"`
	UnlockedAt  time.Time             `json:"unlockedAt"`
}

// AchievementProgress describes one catalog entry from a user's point of view.
type AchievementProgress struct {
	Achievement AchievementDefinition `json:"achievement"`
	Unlocked    bool                  `json:"unlocked"`
	UnlockedAt  *time.Time            `json:"unlockedAt,omitempty"`
	Current     float64               `json:"current"`
	Progress    float64               `json:"progress"` // 0..100
}
