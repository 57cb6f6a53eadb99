package repository

import (
	"context"
	"time"

	"flightshare/internal/domain/user"
	"flightshare/internal/infra"
	"flightshare/internal/infra/db"
	"flightshare/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, password_hash, role, display_name, last_login, is_active, created_at, updated_at`

type UserRepository struct {
	db db.DBTX
}

func NewUserRepository(dbtx db.DBTX) *UserRepository {
	return &UserRepository{db: dbtx}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("user not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find user by ID", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("user not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find user by email", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return infra.WrapRepoErr("failed to update user last login", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("user not found", nil, infra.KindNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		id                         uuid.UUID
		email, hash, role, display string
		lastLogin                  pgtype.Timestamptz
		isActive                   bool
		createdAt, updatedAt       time.Time
	)
	if err := row.Scan(&id, &email, &hash, &role, &display, &lastLogin, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	e, err := user.NewEmail(email)
	if err != nil {
		return nil, err
	}
	r, err := user.NewRole(role)
	if err != nil {
		return nil, err
	}

	return user.ReconstructUser(id, e, hash, r, display, pgconv.TimePtrFromPgtype(lastLogin), isActive, createdAt.UTC(), updatedAt.UTC()), nil
}
