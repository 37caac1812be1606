package service

import (
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, h *harness) UserView {
	t.Helper()

	view, err := h.auth.Register(h.ctx, RegisterInput{
		Name:           "rina wati",
		Email:          "Rina@Example.com",
		Password:       "rahasia123",
		WhatsappNumber: "081277770001",
		Address:        "Jl. Pelabuhan 9",
	})
	require.NoError(t, err)
	return view
}

func TestAuthRegister(t *testing.T) {
	h := newHarness(t)

	view := register(t, h)
	assert.Equal(t, "Rina Wati", view.Name)
	assert.Equal(t, "rina@example.com", view.Email)
	assert.Equal(t, domain.RoleUser, view.Role)

	stored := new(domain.User)
	require.NoError(t, h.db.NewSelect().Model(stored).Where("?TableAlias.id = ?", view.ID).Scan(h.ctx))
	require.NotNil(t, stored.PasswordHash)
	assert.NotEqual(t, "rahasia123", *stored.PasswordHash)
	assert.True(t, auth.CheckPassword(*stored.PasswordHash, "rahasia123"))

	_, err := h.auth.Register(h.ctx, RegisterInput{
		Name:           "Rina Lain",
		Email:          "  RINA@example.com ",
		Password:       "rahasia456",
		WhatsappNumber: "081277770002",
		Address:        "x",
	})
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict), "padded email must reach the duplicate check: %v", err)

	_, err = h.auth.Register(h.ctx, RegisterInput{Name: "x", Email: "not-an-email", Password: "rahasia123"})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation), err)
}

func TestAuthLogin(t *testing.T) {
	h := newHarness(t)
	registered := register(t, h)

	view, err := h.auth.Login(h.ctx, LoginInput{Email: " RINA@example.com", Password: "rahasia123"})
	require.NoError(t, err)
	require.NotEmpty(t, view.Token)
	assert.Equal(t, registered.ID, view.ID)

	claims, err := h.auth.Authenticate(view.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	me, err := h.auth.Me(h.ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "Rina Wati", me.Name)
	assert.Empty(t, me.Token)

	tests := []struct {
		name  string
		input LoginInput
	}{
		{"wrong password", LoginInput{Email: "rina@example.com", Password: "salah12345"}},
		{"unknown email", LoginInput{Email: "nobody@example.com", Password: "rahasia123"}},
		{"user without password", LoginInput{Email: "budi@example.com", Password: "rahasia123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Login(h.ctx, tt.input)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryAuth), err)
			assert.Equal(t, "invalid email or password", domain.Normalize(err).Message)
		})
	}

	_, err = h.auth.Me(h.ctx, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryAuth), err)

	_, err = h.auth.Authenticate("not.a.token")
	assert.True(t, errors.IsCategory(err, errors.CategoryAuth), err)
}

func TestAuthChangePassword(t *testing.T) {
	h := newHarness(t)
	registered := register(t, h)

	err := h.auth.ChangePassword(h.ctx, registered.ID, ChangePasswordInput{OldPassword: "salah12345", NewPassword: "baru12345"})
	assert.True(t, errors.IsCategory(err, errors.CategoryAuth), err)

	err = h.auth.ChangePassword(h.ctx, registered.ID, ChangePasswordInput{OldPassword: "rahasia123", NewPassword: "rahasia123"})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation), err)

	err = h.auth.ChangePassword(h.ctx, registered.ID, ChangePasswordInput{OldPassword: "rahasia123", NewPassword: "baru12345"})
	require.NoError(t, err)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "rina@example.com", Password: "rahasia123"})
	assert.True(t, errors.IsCategory(err, errors.CategoryAuth), "old password must stop working: %v", err)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "rina@example.com", Password: "baru12345"})
	assert.NoError(t, err)

	err = h.auth.ChangePassword(h.ctx, 999, ChangePasswordInput{OldPassword: "rahasia123", NewPassword: "baru12345"})
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound), err)
}
