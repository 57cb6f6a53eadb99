package queries

import (
	"context"

	"github.com/google/uuid"

	"flightshare/internal/domain/user"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/errs"
)

var (
	ErrUserNotFound = errs.NewKind(errs.ErrNotFound, "user not found")
	ErrUserInactive = errs.NewKind(errs.ErrForbidden, "user inactive")
)

type UserQueries interface {
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*AuthorizedUserView, error)
}

type UserReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type userQueriesImpl struct {
	readStore UserReadStore
}

func NewUserQueries(readStore UserReadStore) UserQueries {
	return &userQueriesImpl{
		readStore: readStore,
	}
}

func (q *userQueriesImpl) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*AuthorizedUserView, error) {
	u, err := q.readStore.FindByID(ctx, userID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !u.IsActive() {
		return nil, ErrUserInactive
	}

	return NewAuthorizedUserView(u), nil
}
