//go:build unit || e2e

package builder

import (
	"time"

	"flightshare/internal/domain/principal"
	"flightshare/internal/domain/user"
	"flightshare/internal/usecase/queries"

	"github.com/google/uuid"
)

type UserBuilder struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	DisplayName  string
	IsActive     bool
}

func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		ID:           uuid.New(),
		Email:        "test@example.com",
		PasswordHash: "hashed_password",
		Role:         "member",
		DisplayName:  "Test Traveller",
		IsActive:     true,
	}
}

func (u *UserBuilder) With(mutate func(*UserBuilder)) *UserBuilder {
	mutate(u)
	return u
}

// BuildDomain validates through the domain constructors.
func (u *UserBuilder) BuildDomain() (*user.User, error) {
	email, err := user.NewEmail(u.Email)
	if err != nil {
		return nil, err
	}

	role, err := user.NewRole(u.Role)
	if err != nil {
		return nil, err
	}

	return user.NewUser(email, u.PasswordHash, role, u.DisplayName), nil
}

// BuildStored is the user as a repository would return it, keeping ID and IsActive.
func (u *UserBuilder) BuildStored() *user.User {
	email, err := user.NewEmail(u.Email)
	if err != nil {
		panic(err)
	}
	role, err := user.NewRole(u.Role)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	return user.ReconstructUser(u.ID, email, u.PasswordHash, role, u.DisplayName, nil, u.IsActive, now, now)
}

func (u *UserBuilder) BuildReadModel() *queries.AuthorizedUserView {
	return &queries.AuthorizedUserView{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
		IsActive:    u.IsActive,
	}
}

func (u *UserBuilder) BuildPrincipal() principal.Authenticated {
	return principal.Authenticated{
		ID:     u.ID,
		Email:  u.Email,
		Role:   user.Role(u.Role),
		Source: principal.SourceSession,
	}
}

// Fluent builder methods
func (u *UserBuilder) WithID(id uuid.UUID) *UserBuilder {
	u.ID = id
	return u
}

func (u *UserBuilder) WithEmail(email string) *UserBuilder {
	u.Email = email
	return u
}

func (u *UserBuilder) WithRole(role string) *UserBuilder {
	u.Role = role
	return u
}

func (u *UserBuilder) WithPasswordHash(hash string) *UserBuilder {
	u.PasswordHash = hash
	return u
}

func (u *UserBuilder) WithDisplayName(name string) *UserBuilder {
	u.DisplayName = name
	return u
}

func (u *UserBuilder) AsInactive() *UserBuilder {
	u.IsActive = false
	return u
}
