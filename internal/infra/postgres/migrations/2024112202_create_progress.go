package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed create_progress.sql
var createProgressSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createProgressSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS course_progress; DROP TABLE IF EXISTS course_assignments`)
			return err
		},
	)
}
