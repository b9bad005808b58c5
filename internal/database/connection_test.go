package database

import (
	"errors"
	"testing"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"not null", &pgconn.PgError{Code: "23502"}, models.ErrBadRequest},
		{"bad json", &pgconn.PgError{Code: "22P02"}, models.ErrCorruptRecord},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.True(t, errors.Is(got, tt.want))
		})
	}
}
