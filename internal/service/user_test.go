package service

import (
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/listing"
	"github.com/goliatone/go-jastip/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreate(t *testing.T) {
	h := newHarness(t)

	h.cache.Set(h.ctx, "users:/api/users", "page", 0)
	h.cache.Set(h.ctx, "users-count", 4, 0)

	view, err := h.users.Create(h.ctx, CreateUserInput{
		Name:           "  dewi   lestari ",
		WhatsappNumber: "081299990001",
		Address:        "Jl. Yos Sudarso 3",
		Email:          " Dewi@Example.com ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Dewi Lestari", view.Name)
	assert.Equal(t, domain.RoleUser, view.Role)
	assert.Equal(t, "dewi@example.com", view.Email)
	assert.Empty(t, view.Token)

	for _, key := range []string{"users:/api/users", "users-count"} {
		_, ok := cache.Get[string](h.ctx, h.cache, key)
		assert.False(t, ok, "expected %s to be purged", key)
	}

	cached, ok := cache.Get[*domain.User](h.ctx, h.cache, "user:5")
	require.True(t, ok, "expected the new user to be re-seeded")
	assert.Equal(t, view.ID, cached.ID)

	total, err := h.users.Total(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestUserCreate_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		input    CreateUserInput
		category errors.Category
	}{
		{
			name:     "duplicate email",
			input:    CreateUserInput{Name: "Budi", WhatsappNumber: "081200000000", Address: "x", Email: "BUDI@example.com"},
			category: errors.CategoryConflict,
		},
		{
			name:     "letters in whatsapp number",
			input:    CreateUserInput{Name: "Budi", WhatsappNumber: "08abc", Address: "x"},
			category: errors.CategoryValidation,
		},
		{
			name:     "unknown role",
			input:    CreateUserInput{Name: "Budi", WhatsappNumber: "081200000000", Address: "x", Role: "ROOT"},
			category: errors.CategoryValidation,
		},
		{
			name:     "short password",
			input:    CreateUserInput{Name: "Budi", WhatsappNumber: "081200000000", Address: "x", Password: "short"},
			category: errors.CategoryValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.users.Create(h.ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.category, domain.Normalize(err).Category, err.Error())
			assert.Equal(t, 4, h.count(t, (*domain.User)(nil)))
		})
	}
}

func TestUserGet_Cached(t *testing.T) {
	h := newHarness(t)
	siti := h.seeded.Users[1]

	view, err := h.users.Get(h.ctx, siti.ID)
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", view.Name)

	_, ok := cache.Get[*domain.User](h.ctx, h.cache, "user:2")
	assert.True(t, ok)

	_, err = h.users.Get(h.ctx, 999)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound), err)
}

func TestUserUpdate(t *testing.T) {
	h := newHarness(t)
	siti := h.seeded.Users[1]

	_, err := h.users.Get(h.ctx, siti.ID)
	require.NoError(t, err)

	view, err := h.users.Update(h.ctx, siti.ID, UpdateUserInput{Address: "Jl. Mulawarman 7", Role: domain.RoleCashier})
	require.NoError(t, err)
	assert.Equal(t, "Jl. Mulawarman 7", view.Address)
	assert.Equal(t, domain.RoleCashier, view.Role)
	assert.Equal(t, "Siti Aminah", view.Name, "empty fields are left alone")

	again, err := h.users.Get(h.ctx, siti.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jl. Mulawarman 7", again.Address)

	stored := new(domain.User)
	require.NoError(t, h.db.NewSelect().Model(stored).Where("?TableAlias.id = ?", siti.ID).Scan(h.ctx))
	assert.Equal(t, domain.RoleCashier, stored.Role)

	_, err = h.users.Update(h.ctx, 999, UpdateUserInput{Address: "x"})
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound), err)

	_, err = h.users.Update(h.ctx, siti.ID, UpdateUserInput{WhatsappNumber: "abc"})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation), err)
}

func TestUserListing(t *testing.T) {
	h := newHarness(t)

	page, err := h.users.ListAll(h.ctx, pagination.Request{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Mitchell Kasir", page.Items[0].Name)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 4, page.MaxCursor)

	next, err := h.users.ListAll(h.ctx, pagination.Request{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "Budi Santoso", next.Items[0].Name)
	assert.False(t, next.HasNextPage)

	found, err := h.users.Search(h.ctx, listing.Filter{Keyword: "siti@"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Siti Aminah", found.Items[0].Name)
}
