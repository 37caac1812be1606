package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/invalidation"
	"github.com/uptrace/bun"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type RegisterInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	WhatsappNumber string `json:"whatsapp_number"`
	Address        string `json:"address"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&in.WhatsappNumber, validation.Required, is.Digit, validation.Length(8, 16)),
		validation.Field(&in.Address, validation.Required),
	)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.OldPassword, validation.Required),
		validation.Field(&in.NewPassword, validation.Required, validation.Length(8, 72),
			validation.NotIn(in.OldPassword).Error("must differ from the old password")),
	)
}

// AuthService handles credentials. It reads users from the uncached
// repository since cached users never carry a password hash.
type AuthService struct {
	db     *bun.DB
	users  repository.Repository[*domain.User]
	tokens *auth.Tokens
	policy *invalidation.Policy
	logger *slog.Logger
}

func NewAuthService(
	db *bun.DB,
	users repository.Repository[*domain.User],
	tokens *auth.Tokens,
	policy *invalidation.Policy,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		db:     db,
		users:  users,
		tokens: tokens,
		policy: policy,
		logger: logger.With("service", "auth"),
	}
}

// Register creates a USER account that can log in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (UserView, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return UserView{}, domain.InvalidInput(err)
	}
	email := in.Email

	_, err := s.users.GetByIdentifier(ctx, email)
	switch {
	case err == nil:
		s.logger.WarnContext(ctx, "email already registered", "email", email)
		return UserView{}, domain.Conflict("email already registered")
	case !repository.IsRecordNotFound(err):
		return UserView{}, domain.FromRepository(err, "user", email)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return UserView{}, err
	}

	user := &domain.User{
		Name:           titleCase(in.Name),
		WhatsappNumber: in.WhatsappNumber,
		Address:        in.Address,
		Role:           domain.RoleUser,
		Email:          &email,
		PasswordHash:   &hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return UserView{}, domain.FromDB(s.db, err, "user", email)
	}

	s.policy.Apply(ctx, invalidation.Event{
		Mutation: invalidation.UserCreated,
		ID:       strconv.FormatInt(user.ID, 10),
		Record:   user,
	})
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return NewUserView(user), nil
}

// Login checks credentials and returns the user with a signed token.
// Unknown emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (UserView, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return UserView{}, domain.InvalidInput(err)
	}
	email := in.Email

	user, err := s.users.GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return UserView{}, domain.Unauthorized("invalid email or password")
		}
		return UserView{}, domain.FromRepository(err, "user", email)
	}
	if user.PasswordHash == nil || !auth.CheckPassword(*user.PasswordHash, in.Password) {
		s.logger.WarnContext(ctx, "login rejected", "user_id", user.ID)
		return UserView{}, domain.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return UserView{}, err
	}

	view := NewUserView(user)
	view.Token = token
	return view, nil
}

// ChangePassword replaces the password of the user after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return domain.InvalidInput(err)
	}

	key := strconv.FormatInt(userID, 10)
	user, err := s.users.GetByID(ctx, key)
	if err != nil {
		return domain.FromRepository(err, "user", key)
	}
	if user.PasswordHash == nil || !auth.CheckPassword(*user.PasswordHash, in.OldPassword) {
		return domain.Unauthorized("old password does not match")
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = &hash

	_, err = s.db.NewUpdate().
		Model(user).
		Column("password_hash", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.FromDB(s.db, err, "user", key)
	}

	s.policy.Apply(ctx, invalidation.Event{Mutation: invalidation.UserUpdated, ID: key, Record: user})
	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

// Me returns the user behind the claims.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (UserView, error) {
	if claims == nil {
		return UserView{}, domain.Unauthorized("missing credentials")
	}
	key := strconv.FormatInt(claims.UserID, 10)
	user, err := s.users.GetByID(ctx, key)
	if err != nil {
		return UserView{}, domain.FromRepository(err, "user", key)
	}
	return NewUserView(user), nil
}

// Authenticate resolves a bearer token to its claims.
func (s *AuthService) Authenticate(token string) (*auth.Claims, error) {
	return s.tokens.Parse(token)
}

// titleCase collapses whitespace and capitalises each word. Casers hold
// state, so one is built per call.
func titleCase(name string) string {
	return cases.Title(language.Indonesian).String(strings.Join(strings.Fields(name), " "))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
