package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"xforce-progression/internal/domain"
)

type ActivityRow struct {
	bun.BaseModel `bun:"table:activity_ledger,alias:al"`

	UserID         string    `bun:"user_id,pk"`
	Day            time.Time `bun:"day,pk,type:date"`
	LastActivityAt time.Time `bun:"last_activity_at,notnull"`
}

type AchievementRow struct {
	bun.BaseModel `bun:"table:achievements,alias:a"`

	ID           string                       `bun:"id,pk"`
	Name         string                       `bun:"name,notnull"`
	Description  string                       `bun:"description,notnull"`
	TriggerType  string                       `bun:"trigger_type,notnull"`
	Requirement  float64                      `bun:"requirement,notnull"`
	Condition    *domain.AchievementCondition `bun:"condition,type:jsonb"`
	RewardXP     int                          `bun:"reward_xp,notnull"`
	RewardPoints int                          `bun:"reward_points,notnull"`
	Position     int                          `bun:"position,notnull"`
}

// NewAchievementRow maps a definition to its table row.
func NewAchievementRow(def domain.AchievementDefinition) AchievementRow {
	return AchievementRow{
		ID:           def.ID,
		Name:         def.Name,
		Description:  def.Description,
		TriggerType:  string(def.Trigger),
		Requirement:  def.Requirement,
		Condition:    def.Condition,
		RewardXP:     def.RewardXP,
		RewardPoints: def.RewardPoints,
		Position:     def.Position,
	}
}

func (r AchievementRow) definition() domain.AchievementDefinition {
	return domain.AchievementDefinition{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Trigger:      domain.Trigger(r.TriggerType),
		Requirement:  r.Requirement,
		Condition:    r.Condition,
		RewardXP:     r.RewardXP,
		RewardPoints: r.RewardPoints,
		Position:     r.Position,
	}
}

type AttemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID               string    `bun:"id,pk,type:uuid"`
	UserID           string    `bun:"user_id,notnull"`
	QuizID           string    `bun:"quiz_id,notnull"`
	PercentageScore  int       `bun:"percentage_score,notnull"`
	Passed           bool      `bun:"passed,notnull"`
	Difficulty       string    `bun:"difficulty,notnull"`
	PointsAwarded    int       `bun:"points_awarded,notnull"`
	XPAwarded        int       `bun:"xp_awarded,notnull"`
	TimeTakenSeconds *float64  `bun:"time_taken_seconds"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}
