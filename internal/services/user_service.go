package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

const minPasswordLength = 8

var (
	// ErrUserInvalidInput indicates the caller supplied invalid input parameters.
	ErrUserInvalidInput = errors.New("users: invalid input")
	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = errors.New("users: not found")
	// ErrUserEmailTaken indicates the email is already registered.
	ErrUserEmailTaken = errors.New("users: email already registered")
	// ErrUserInvalidCredentials indicates the login email or password is wrong.
	ErrUserInvalidCredentials = errors.New("users: invalid credentials")
	// ErrUserUnavailable indicates user dependencies are currently unavailable.
	ErrUserUnavailable = errors.New("users: unavailable")
)

// UserServiceDeps wires the dependencies required by the user service.
type UserServiceDeps struct {
	Users      repositories.UserRepository
	BcryptCost int
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users      repositories.UserRepository
	bcryptCost int
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewUserService constructs a UserService validating required dependencies.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}

	cost := deps.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &userService{
		users:      deps.Users,
		bcryptCost: cost,
		logger:     logger,
	}, nil
}

// Register creates an account with a bcrypt password hash.
func (s *userService) Register(ctx context.Context, cmd RegisterCommand) (domain.UserProfile, error) {
	if s == nil || s.users == nil {
		return domain.UserProfile{}, ErrUserUnavailable
	}

	username := strings.TrimSpace(cmd.Username)
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if username == "" || !validEmail(email) || len(cmd.Password) < minPasswordLength {
		return domain.UserProfile{}, ErrUserInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("users: hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.UserProfile{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.UserRoleUser,
	})
	if err != nil {
		if repositories.IsConflict(err) {
			return domain.UserProfile{}, ErrUserEmailTaken
		}
		return domain.UserProfile{}, s.translateError(err, "create user")
	}

	s.logger(ctx, "users.registered", map[string]any{"userId": user.ID})
	return scrubPassword(user), nil
}

// Login verifies the credentials and returns the account. The password check
// runs against a constant dummy hash when the email is unknown so both
// failure paths take comparable time.
func (s *userService) Login(ctx context.Context, cmd LoginCommand) (domain.UserProfile, error) {
	if s == nil || s.users == nil {
		return domain.UserProfile{}, ErrUserUnavailable
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return domain.UserProfile{}, ErrUserInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(cmd.Password))
			return domain.UserProfile{}, ErrUserInvalidCredentials
		}
		return domain.UserProfile{}, s.translateError(err, "load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		return domain.UserProfile{}, ErrUserInvalidCredentials
	}

	s.logger(ctx, "users.logged_in", map[string]any{"userId": user.ID})
	return scrubPassword(user), nil
}

// GetUser loads an account by its identifier.
func (s *userService) GetUser(ctx context.Context, userID string) (domain.UserProfile, error) {
	if s == nil || s.users == nil {
		return domain.UserProfile{}, ErrUserUnavailable
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserProfile{}, ErrUserInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, s.translateError(err, "get user")
	}
	return scrubPassword(user), nil
}

// ListUsers returns every account, newest first.
func (s *userService) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	if s == nil || s.users == nil {
		return nil, ErrUserUnavailable
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, s.translateError(err, "list users")
	}
	for i := range users {
		users[i] = scrubPassword(users[i])
	}
	return users, nil
}

// UpdateProfile overwrites the editable profile fields.
func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (domain.UserProfile, error) {
	if s == nil || s.users == nil {
		return domain.UserProfile{}, ErrUserUnavailable
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" || strings.TrimSpace(cmd.Username) == "" {
		return domain.UserProfile{}, ErrUserInvalidInput
	}

	user, err := s.users.UpdateProfile(ctx, domain.UserProfile{
		ID:           userID,
		Username:     cmd.Username,
		ProfileImage: cmd.ProfileImage,
		Bio:          cmd.Bio,
		Profession:   cmd.Profession,
	})
	if err != nil {
		return domain.UserProfile{}, s.translateError(err, "update profile")
	}
	return scrubPassword(user), nil
}

// UpdateRole switches an account between the customer and admin roles.
func (s *userService) UpdateRole(ctx context.Context, userID string, role string) (domain.UserProfile, error) {
	if s == nil || s.users == nil {
		return domain.UserProfile{}, ErrUserUnavailable
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserProfile{}, ErrUserInvalidInput
	}

	next := domain.UserRole(strings.ToLower(strings.TrimSpace(role)))
	if next != domain.UserRoleUser && next != domain.UserRoleAdmin {
		return domain.UserProfile{}, ErrUserInvalidInput
	}

	user, err := s.users.UpdateRole(ctx, userID, next)
	if err != nil {
		return domain.UserProfile{}, s.translateError(err, "update role")
	}

	s.logger(ctx, "users.role_changed", map[string]any{
		"userId": user.ID,
		"role":   string(user.Role),
	})
	return scrubPassword(user), nil
}

// DeleteUser removes an account.
func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	if s == nil || s.users == nil {
		return ErrUserUnavailable
	}
	if strings.TrimSpace(userID) == "" {
		return ErrUserInvalidInput
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return s.translateError(err, "delete user")
	}

	s.logger(ctx, "users.deleted", map[string]any{"userId": userID})
	return nil
}

// dummyPasswordHash is a bcrypt digest of a random string, compared against
// when the login email is unknown.
var dummyPasswordHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

func scrubPassword(user domain.UserProfile) domain.UserProfile {
	user.PasswordHash = ""
	return user
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func (s *userService) translateError(err error, op string) error {
	switch {
	case repositories.IsNotFound(err):
		return ErrUserNotFound
	case repositories.IsUnavailable(err):
		return ErrUserUnavailable
	default:
		return fmt.Errorf("users: %s: %w", op, err)
	}
}
