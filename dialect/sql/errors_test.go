package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type sqliteErr struct{ code int }

func (e sqliteErr) Error() string { return fmt.Sprintf("sqlite error %d", e.code) }
func (e sqliteErr) Code() int     { return e.code }

func TestConstraintKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("connection refused"), ""},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, UniqueConstraint},
		{"pgx foreign key wrapped", fmt.Errorf("dialect/sql: exec: %w", &pgconn.PgError{Code: "23503"}), ForeignKeyConstraint},
		{"pq check", &pq.Error{Code: "23514"}, CheckConstraint},
		{"pq not null", fmt.Errorf("wrap: %w", &pq.Error{Code: "23502"}), NotNullConstraint},
		{"pq other", &pq.Error{Code: "42P01"}, ""},
		{"sqlite unique", sqliteErr{2067}, UniqueConstraint},
		{"sqlite primary key", sqliteErr{1555}, UniqueConstraint},
		{"sqlite foreign key", sqliteErr{787}, ForeignKeyConstraint},
		{"message fallback", errors.New("UNIQUE constraint failed: posts.title"), UniqueConstraint},
		{"message not null", errors.New("NOT NULL constraint failed: posts.title"), NotNullConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConstraintKind(tt.err))
			assert.Equal(t, tt.want != "", IsConstraintError(tt.err))
		})
	}
}

func TestConstraintHelpers(t *testing.T) {
	assert.True(t, IsUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyConstraintError(&pq.Error{Code: "23503"}))
	assert.True(t, IsCheckConstraintError(errors.New(`new row violates check constraint "positive"`)))
}

func TestSQLState(t *testing.T) {
	code, ok := SQLState(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "40001"}))
	assert.True(t, ok)
	assert.Equal(t, "40001", code)

	code, ok = SQLState(&pq.Error{Code: "42P01"})
	assert.True(t, ok)
	assert.Equal(t, "42P01", code)

	_, ok = SQLState(errors.New("plain"))
	assert.False(t, ok)
}
