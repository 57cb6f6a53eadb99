//go:build unit

package repository

import (
	"context"
	"testing"
	"time"

	"flightshare/internal/domain/user"
	"flightshare/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateLastLogin(t *testing.T) {
	testUserID := uuid.New()
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		tag      pgconn.CommandTag
		mockErr  error
		wantKind infra.RepositoryErrorKind
	}{
		{name: "success", tag: pgconn.NewCommandTag("UPDATE 1")},
		{name: "no such user", tag: pgconn.NewCommandTag("UPDATE 0"), wantKind: infra.KindNotFound},
		{name: "database error", mockErr: assert.AnError, wantKind: infra.KindDBFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbtx := new(MockDBTX)
			dbtx.On("Exec", mock.Anything, mock.Anything, []any{testUserID, at}).Return(tt.tag, tt.mockErr)

			repo := NewUserRepository(dbtx)
			err := repo.UpdateLastLogin(context.Background(), testUserID, at)

			if tt.wantKind != "" {
				assert.Error(t, err)
				assert.True(t, infra.IsKind(err, tt.wantKind))
			} else {
				assert.NoError(t, err)
			}
			dbtx.AssertExpectations(t)
		})
	}
}

func TestFindUserByEmail(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	lastLogin := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		dbtx := new(MockDBTX)
		dbtx.On("QueryRow", mock.Anything, mock.Anything, []any{"Test@Example.com"}).Return(rowOf(
			id, "test@example.com", "hash", "operator", "Ops",
			pgtype.Timestamptz{Time: lastLogin, Valid: true}, true, created, created,
		))

		u, err := NewUserRepository(dbtx).FindByEmail(context.Background(), "Test@Example.com")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID())
		assert.Equal(t, user.RoleOperator, u.Role())
		assert.Equal(t, "Ops", u.DisplayName())
		require.NotNil(t, u.LastLogin())
		assert.Equal(t, lastLogin, *u.LastLogin())
	})

	t.Run("not found", func(t *testing.T) {
		dbtx := new(MockDBTX)
		dbtx.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(rowErr(pgx.ErrNoRows))

		_, err := NewUserRepository(dbtx).FindByEmail(context.Background(), "nobody@example.com")
		assert.True(t, infra.IsKind(err, infra.KindNotFound))
	})

	t.Run("unknown role in storage", func(t *testing.T) {
		dbtx := new(MockDBTX)
		dbtx.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(rowOf(
			id, "test@example.com", "hash", "root", "", pgtype.Timestamptz{}, true, created, created,
		))

		_, err := NewUserRepository(dbtx).FindByEmail(context.Background(), "test@example.com")
		assert.True(t, infra.IsKind(err, infra.KindDBFailure))
	})
}
