//go:build unit

package user_test

import (
	"testing"

	"flightshare/internal/domain/user"
	"flightshare/tests/common/builder"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cmpOpts = []cmp.Option{
	cmpopts.IgnoreUnexported(user.User{}),
	cmpopts.EquateEmpty(),
}

type testCase struct {
	name   string
	mutate func(*builder.UserBuilder)
	errIs  error
}

func TestUser(t *testing.T) {
	t.Run("基本成功ケース", func(t *testing.T) {

		actual, err := builder.NewUserBuilder().BuildDomain()
		require.NoError(t, err)
		require.NotNil(t, actual)

		email, _ := user.NewEmail("test@example.com")
		role, _ := user.NewRole("member")
		expected := user.NewUser(email, "hashed_password", role, "Test Traveller")

		if diff := cmp.Diff(expected, actual, cmpOpts...); diff != "" {
			t.Errorf("User mismatch (-want +got):\n%s", diff)
		}

		assert.NotEqual(t, uuid.Nil, actual.ID())
		assert.True(t, actual.IsActive())
		assert.Nil(t, actual.LastLogin())
	})

	t.Run("メールアドレス検証", func(t *testing.T) {
		runCases(t, []testCase{
			{
				name:   "有効なメールアドレスOK",
				mutate: func(b *builder.UserBuilder) { b.WithEmail("valid@example.com") },
			},
			{
				name:   "空のメールアドレスNG",
				mutate: func(b *builder.UserBuilder) { b.WithEmail("") },
				errIs:  user.ErrInvalidEmail,
			},
			{
				name:   "無効な形式NG",
				mutate: func(b *builder.UserBuilder) { b.WithEmail("invalid-email") },
				errIs:  user.ErrInvalidEmail,
			},
			{
				name:   "大文字は小文字化OK",
				mutate: func(b *builder.UserBuilder) { b.WithEmail("Traveller@Example.COM") },
			},
			{
				name:   "@なしNG",
				mutate: func(b *builder.UserBuilder) { b.WithEmail("invalidemail.com") },
				errIs:  user.ErrInvalidEmail,
			},
		})
	})

	t.Run("ロール検証", func(t *testing.T) {
		runCases(t, []testCase{
			{
				name:   "admin ロールOK",
				mutate: func(b *builder.UserBuilder) { b.WithRole("admin") },
			},
			{
				name:   "operator ロールOK",
				mutate: func(b *builder.UserBuilder) { b.WithRole("operator") },
			},
			{
				name:   "member ロールOK",
				mutate: func(b *builder.UserBuilder) { b.WithRole("member") },
			},
			{
				name:   "旧 viewer ロールNG",
				mutate: func(b *builder.UserBuilder) { b.WithRole("viewer") },
				errIs:  user.ErrInvalidRole,
			},
			{
				name:   "無効なロールNG",
				mutate: func(b *builder.UserBuilder) { b.WithRole("invalid_role") },
				errIs:  user.ErrInvalidRole,
			},
			{
				name:   "空のロールNG",
				mutate: func(b *builder.UserBuilder) { b.WithRole("") },
				errIs:  user.ErrInvalidRole,
			},
		})
	})

	t.Run("表示名検証", func(t *testing.T) {
		runCases(t, []testCase{
			{
				name:   "表示名有りOK",
				mutate: func(b *builder.UserBuilder) { b.WithDisplayName("Aiko") },
			},
			{
				name:   "表示名無しOK",
				mutate: func(b *builder.UserBuilder) { b.WithDisplayName("") },
			},
		})
	})

	t.Run("状態検証", func(t *testing.T) {
		runCases(t, []testCase{
			{
				name:   "アクティブユーザーOK",
				mutate: func(b *builder.UserBuilder) { /* デフォルトでアクティブ */ },
			},
			{
				name:   "非アクティブユーザーOK",
				mutate: func(b *builder.UserBuilder) { b.AsInactive() },
			},
		})
	})
}

func TestRoleRank(t *testing.T) {
	assert.True(t, user.RoleAdmin.AtLeast(user.RoleAdmin))
	assert.True(t, user.RoleAdmin.AtLeast(user.RoleMember))
	assert.True(t, user.RoleOperator.AtLeast(user.RoleMember))
	assert.False(t, user.RoleOperator.AtLeast(user.RoleAdmin))
	assert.False(t, user.RoleMember.AtLeast(user.RoleOperator))
	assert.False(t, user.Role("ghost").AtLeast(user.RoleMember))
}

func TestMatchesEmail(t *testing.T) {
	u, err := builder.NewUserBuilder().WithEmail("aiko@example.com").BuildDomain()
	require.NoError(t, err)

	assert.True(t, u.MatchesEmail("AIKO@example.com"))
	assert.False(t, u.MatchesEmail("other@example.com"))
	assert.False(t, u.MatchesEmail("not-an-email"))
}

func TestCredentials(t *testing.T) {
	_, err := user.NewCredentials("aiko@example.com", "short")
	require.ErrorIs(t, err, user.ErrPasswordTooWeak)

	c, err := user.NewCredentials("Aiko@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "aiko@example.com", c.Email().Value())
}

func runCases(t *testing.T, cases []testCase) {
	t.Helper()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {

			actual, err := builder.NewUserBuilder().With(c.mutate).BuildDomain()

			if c.errIs == nil {
				require.NotNil(t, actual)
				require.NoError(t, err)
			} else {
				require.Nil(t, actual)
				require.Error(t, err)
				require.ErrorIs(t, err, c.errIs)
			}
		})
	}
}
