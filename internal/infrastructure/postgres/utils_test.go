package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/b2b-storefront-api/internal/domain"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		invalid bool
	}{
		{"numeric field overflow", &pgconn.PgError{Code: "22003"}, true},
		{"escape inválido en jsonb", &pgconn.PgError{Code: "22P05"}, true},
		{"byte nulo en texto", &pgconn.PgError{Code: "22021"}, true},
		{"serialización", &pgconn.PgError{Code: "40001"}, false},
		{"única", &pgconn.PgError{Code: "23505"}, false},
		{"red", errors.New("connection reset by peer"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := writeError("insert event", tc.err)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.invalid, errors.Is(err, domain.ErrInvalidInput))
			assert.Contains(t, err.Error(), "insert event: ")
		})
	}
}

func TestCartLockKey(t *testing.T) {
	assert.Equal(t, "cart:t-1:c1", cartLockKey("t-1", "c1"))
	assert.NotEqual(t, cartLockKey("t-1", "c1"), cartLockKey("t-2", "c1"))
}
