package repository

import (
	"context"
	"time"

	"library-manager/internal/domain"
)

// BorrowRepository manages the lending ledger. Records are insert-and-update
// only; no delete is defined.
type BorrowRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, record *domain.BorrowRecord) (int64, error)
	Update(ctx context.Context, record *domain.BorrowRecord) error
	GetByGUID(ctx context.Context, guid string) (*domain.BorrowRecord, error)
	// ExistsActiveForBook reports whether the book has a BORROWED record.
	// This is the authoritative guard behind Book.Available.
	ExistsActiveForBook(ctx context.Context, bookID int64) (bool, error)
	List(ctx context.Context, page PageRequest) (Page[domain.BorrowRecord], error)
	ListByUser(ctx context.Context, userID int64, page PageRequest) (Page[domain.BorrowRecord], error)
	// ListOverdue returns BORROWED records whose due date is before asOf.
	ListOverdue(ctx context.Context, asOf time.Time, page PageRequest) (Page[domain.BorrowRecord], error)
}

// LendingTx is the repository view available inside one lending transaction.
type LendingTx interface {
	Books() BookRepository
	Borrows() BorrowRepository
}

// UnitOfWork runs a read-check-mutate sequence against books and borrow
// records inside a single transaction: either every write in fn is
// persisted or none is.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx LendingTx) error) error
}
