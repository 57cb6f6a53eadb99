//go:build unit

package fakes

import (
	"context"
	"strings"
	"sync"
	"time"

	"flightshare/internal/domain/user"
	"flightshare/internal/infra"

	"github.com/google/uuid"
)

type UserStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*user.User
	lastLogins map[uuid.UUID]time.Time
}

func NewUserStore(seed ...*user.User) *UserStore {
	s := &UserStore{
		users:      make(map[uuid.UUID]*user.User),
		lastLogins: make(map[uuid.UUID]time.Time),
	}
	for _, u := range seed {
		s.users[u.ID()] = u
	}
	return s
}

func (s *UserStore) Put(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID()] = u
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, infra.WrapRepoErr("user not found", nil, infra.KindNotFound)
	}
	return u, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email().Value() == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, infra.WrapRepoErr("user not found", nil, infra.KindNotFound)
}

func (s *UserStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return infra.WrapRepoErr("user not found", nil, infra.KindNotFound)
	}
	s.lastLogins[id] = at
	return nil
}

func (s *UserStore) LastLogin(id uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.lastLogins[id]
	return at, ok
}
