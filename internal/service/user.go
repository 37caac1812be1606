package service

import (
	"context"
	"log/slog"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/invalidation"
	"github.com/goliatone/go-jastip/internal/listing"
	"github.com/goliatone/go-jastip/internal/pagination"
	"github.com/uptrace/bun"
)

type CreateUserInput struct {
	Name           string      `json:"name"`
	WhatsappNumber string      `json:"whatsapp_number"`
	Address        string      `json:"address"`
	Role           domain.Role `json:"role"`
	Email          string      `json:"email"`
	Password       string      `json:"password"`
}

func (in CreateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.WhatsappNumber, validation.Required, is.Digit, validation.Length(8, 16)),
		validation.Field(&in.Address, validation.Required),
		validation.Field(&in.Role, validation.In(domain.RoleAdmin, domain.RoleUser, domain.RoleCashier)),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.Password, validation.When(in.Password != "", validation.Length(8, 72))),
	)
}

type UpdateUserInput struct {
	Name           string      `json:"name"`
	WhatsappNumber string      `json:"whatsapp_number"`
	Address        string      `json:"address"`
	Role           domain.Role `json:"role"`
}

func (in UpdateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Length(1, 100)),
		validation.Field(&in.WhatsappNumber, is.Digit, validation.Length(8, 16)),
		validation.Field(&in.Role, validation.In(domain.RoleAdmin, domain.RoleUser, domain.RoleCashier)),
	)
}

// UserService manages users. Reads by id go through the cached repository.
type UserService struct {
	db      *bun.DB
	users   repository.Repository[*domain.User]
	listing *listing.Service[domain.User]
	policy  *invalidation.Policy
	logger  *slog.Logger
}

func NewUserService(
	db *bun.DB,
	users repository.Repository[*domain.User],
	list *listing.Service[domain.User],
	policy *invalidation.Policy,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		db:      db,
		users:   users,
		listing: list,
		policy:  policy,
		logger:  logger.With("service", "user"),
	}
}

// Create registers a user. Without a password the user cannot log in, which
// is the case for customers registered at the counter.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (UserView, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return UserView{}, domain.InvalidInput(err)
	}

	user := &domain.User{
		Name:           titleCase(in.Name),
		WhatsappNumber: in.WhatsappNumber,
		Address:        in.Address,
		Role:           in.Role,
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if in.Email != "" {
		email := in.Email
		user.Email = &email
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return UserView{}, err
		}
		user.PasswordHash = &hash
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to create user", "name", user.Name, "error", err)
		return UserView{}, domain.FromDB(s.db, err, "user", in.Email)
	}

	id := strconv.FormatInt(user.ID, 10)
	s.policy.Apply(ctx, invalidation.Event{Mutation: invalidation.UserCreated, ID: id, Record: user})
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return NewUserView(user), nil
}

func (s *UserService) Get(ctx context.Context, id int64) (UserView, error) {
	key := strconv.FormatInt(id, 10)
	user, err := s.users.GetByID(ctx, key)
	if err != nil {
		return UserView{}, domain.FromRepository(err, "user", key)
	}
	return NewUserView(user), nil
}

// Update changes the non empty fields of the input.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (UserView, error) {
	if err := in.Validate(); err != nil {
		return UserView{}, domain.InvalidInput(err)
	}

	key := strconv.FormatInt(id, 10)
	user, err := s.users.GetByID(ctx, key)
	if err != nil {
		return UserView{}, domain.FromRepository(err, "user", key)
	}

	if in.Name != "" {
		user.Name = titleCase(in.Name)
	}
	if in.WhatsappNumber != "" {
		user.WhatsappNumber = in.WhatsappNumber
	}
	if in.Address != "" {
		user.Address = in.Address
	}
	if in.Role != "" {
		user.Role = in.Role
	}

	if _, err := s.users.Update(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to update user", "user_id", id, "error", err)
		return UserView{}, domain.FromDB(s.db, err, "user", key)
	}

	s.policy.Apply(ctx, invalidation.Event{Mutation: invalidation.UserUpdated, ID: key, Record: user})
	return NewUserView(user), nil
}

func (s *UserService) ListAll(ctx context.Context, req pagination.Request) (pagination.Page[UserView], error) {
	page, err := s.listing.ListAll(ctx, req)
	if err != nil {
		return pagination.Page[UserView]{}, err
	}
	return pagination.Map(page, userRowView), nil
}

func (s *UserService) Search(ctx context.Context, f listing.Filter) (pagination.Page[UserView], error) {
	page, err := s.listing.ListFiltered(ctx, f)
	if err != nil {
		return pagination.Page[UserView]{}, err
	}
	return pagination.Map(page, userRowView), nil
}

// Total returns the cached number of users.
func (s *UserService) Total(ctx context.Context) (int, error) {
	return s.listing.Total(ctx)
}
