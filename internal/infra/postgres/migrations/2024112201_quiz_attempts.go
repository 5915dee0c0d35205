// Package migrations holds the bun migrations for the attempt store.
package migrations

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var (
	//go:embed quiz_attempts_up.sql
	quizAttemptsUp string
	//go:embed quiz_attempts_down.sql
	quizAttemptsDown string
)

// Migrations is the registry handed to migrate.NewMigrator.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(createQuizAttempts, dropQuizAttempts)
}

// createQuizAttempts adds the table holding ongoing snapshots and completed
// results, indexed for the per-user dashboard listings.
func createQuizAttempts(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, quizAttemptsUp); err != nil {
		return fmt.Errorf("create quiz_attempts: %w", err)
	}
	log.Printf("quiz_attempts table ready")
	return nil
}

func dropQuizAttempts(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, quizAttemptsDown); err != nil {
		return fmt.Errorf("drop quiz_attempts: %w", err)
	}
	log.Printf("quiz_attempts table dropped; saved attempts are gone")
	return nil
}
