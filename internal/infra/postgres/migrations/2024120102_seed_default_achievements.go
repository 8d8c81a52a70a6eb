package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/infra/postgres"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return postgres.NewAchievementCatalog(db, nil).Upsert(ctx, domain.DefaultAchievements()...)
		},
		func(ctx context.Context, db *bun.DB) error {
			ids := make([]string, 0)
			for _, def := range domain.DefaultAchievements() {
				ids = append(ids, def.ID)
			}
			_, err := db.NewDelete().
				Model((*postgres.AchievementRow)(nil)).
				Where("id IN (?)", bun.In(ids)).
				Exec(ctx)
			return err
		},
	)
}
