package repository

import (
	"context"

	"library-manager/internal/domain"
)

// UserFilter narrows a user search.
type UserFilter struct {
	Username  string
	FirstName string
	LastName  string
	Role      *domain.Role
	Status    *domain.EntityStatus
}

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	Update(ctx context.Context, user *domain.User) error
	GetByGUID(ctx context.Context, guid string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Search(ctx context.Context, filter UserFilter, page PageRequest) (Page[domain.User], error)
	SetStatus(ctx context.Context, id int64, status domain.EntityStatus) error
	Count(ctx context.Context) (int64, error)
}
