package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/logger"
)

// AchievementCatalog reads achievement definitions from the achievements table.
type AchievementCatalog struct {
	db  *bun.DB
	log *logger.Logger
}

func NewAchievementCatalog(db *bun.DB, log *logger.Logger) *AchievementCatalog {
	if log == nil {
		log = logger.Nop()
	}
	return &AchievementCatalog{db: db, log: log.With("component", "achievement_catalog")}
}

func (c *AchievementCatalog) List(ctx context.Context) ([]domain.AchievementDefinition, error) {
	return c.list(ctx, "")
}

func (c *AchievementCatalog) ListByTrigger(ctx context.Context, trigger domain.Trigger) ([]domain.AchievementDefinition, error) {
	return c.list(ctx, trigger)
}

func (c *AchievementCatalog) list(ctx context.Context, trigger domain.Trigger) ([]domain.AchievementDefinition, error) {
	var rows []AchievementRow
	q := c.db.NewSelect().Model(&rows).Order("position ASC", "id ASC")
	if trigger != "" {
		q = q.Where("trigger_type = ?", string(trigger))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return definitions(rows, c.log), nil
}

// definitions maps rows to definitions, skipping rows whose trigger this
// build does not know.
func definitions(rows []AchievementRow, log *logger.Logger) []domain.AchievementDefinition {
	defs := make([]domain.AchievementDefinition, 0, len(rows))
	for _, r := range rows {
		def := r.definition()
		if !def.Trigger.Valid() {
			log.Warn("skipping achievement with unknown trigger", "id", def.ID, "trigger", def.Trigger)
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

// Upsert inserts or replaces definitions.
func (c *AchievementCatalog) Upsert(ctx context.Context, defs ...domain.AchievementDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	rows := make([]AchievementRow, 0, len(defs))
	for _, def := range defs {
		rows = append(rows, NewAchievementRow(def))
	}
	_, err := c.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("trigger_type = EXCLUDED.trigger_type").
		Set("requirement = EXCLUDED.requirement").
		Set("condition = EXCLUDED.condition").
		Set("reward_xp = EXCLUDED.reward_xp").
		Set("reward_points = EXCLUDED.reward_points").
		Set("position = EXCLUDED.position").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert achievements: %w", err)
	}
	return nil
}
