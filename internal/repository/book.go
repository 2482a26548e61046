package repository

import (
	"context"

	"library-manager/internal/domain"
)

// BookFilter narrows a catalog search. String fields match as
// case-insensitive substrings; nil pointers mean "any".
type BookFilter struct {
	Title     string
	Author    string
	ISBN      string
	Genre     string
	Available *bool
	Status    *domain.EntityStatus
}

// BookRepository exposes persistence operations for Book aggregates.
type BookRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, book *domain.Book) (int64, error)
	Update(ctx context.Context, book *domain.Book) error
	GetByGUID(ctx context.Context, guid string) (*domain.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	Search(ctx context.Context, filter BookFilter, page PageRequest) (Page[domain.Book], error)
	SetAvailability(ctx context.Context, id int64, available bool) error
	SetStatus(ctx context.Context, id int64, status domain.EntityStatus) error
}
