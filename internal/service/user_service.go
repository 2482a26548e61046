package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
)

// ErrInvalidCredentials indicates that provided login credentials are incorrect.
var ErrInvalidCredentials = errors.New("invalid credentials")

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// UserUpdateInput carries mutable profile fields. Empty password means keep
// the current one.
type UserUpdateInput struct {
	FirstName string
	LastName  string
	Password  string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByGUID(ctx context.Context, guid string) (*domain.User, error)
	Search(ctx context.Context, filter repository.UserFilter, page repository.PageRequest) (repository.Page[domain.User], error)
	Update(ctx context.Context, guid string, input UserUpdateInput) (*domain.User, error)
	Delete(ctx context.Context, guid string) error
	Activate(ctx context.Context, guid string) (*domain.User, error)
}

type userService struct {
	users repository.UserRepository
	now   func() time.Time
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users, now: time.Now}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Password = strings.TrimSpace(input.Password)

	if input.Username == "" {
		return nil, errors.New("username is required")
	}
	if input.Password == "" {
		return nil, errors.New("password is required")
	}
	if len(input.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if input.Role == "" {
		input.Role = domain.RolePatron
	}
	if _, ok := domain.ParseRole(string(input.Role)); !ok {
		return nil, errors.New("invalid role")
	}

	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return nil, domain.Conflict("user already exists")
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		GUID:         uuid.NewString(),
		Username:     input.Username,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		Status:       domain.EntityStatusActive,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Status.IsActive() {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByGUID(ctx context.Context, guid string) (*domain.User, error) {
	user, err := s.users.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) Search(ctx context.Context, filter repository.UserFilter, page repository.PageRequest) (repository.Page[domain.User], error) {
	result, err := s.users.Search(ctx, filter, page)
	if err != nil {
		return repository.Page[domain.User]{}, err
	}
	for i := range result.Items {
		result.Items[i].PasswordHash = ""
	}
	return result, nil
}

func (s *userService) Update(ctx context.Context, guid string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}

	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) Delete(ctx context.Context, guid string) error {
	user, err := s.users.GetByGUID(ctx, guid)
	if err != nil {
		return err
	}
	return s.users.SetStatus(ctx, user.ID, domain.EntityStatusDeleted)
}

func (s *userService) Activate(ctx context.Context, guid string) (*domain.User, error) {
	user, err := s.users.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetStatus(ctx, user.ID, domain.EntityStatusActive); err != nil {
		return nil, err
	}
	user.Status = domain.EntityStatusActive
	return sanitizeUser(user), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
