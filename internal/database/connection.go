package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return models.ErrBadRequest
		case "22P02": // invalid_text_representation
			return models.ErrCorruptRecord
		}
	}

	return err
}

// Migrate applies the embedded goose migrations to the pool's database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetLogger(log.New(io.Discard, "", 0))
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}

	// Goose needs a database/sql handle
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
