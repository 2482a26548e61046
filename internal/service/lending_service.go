package service

import (
	"context"
	"errors"
	"time"

	"library-manager/internal/domain"
	"library-manager/internal/lock"
	"library-manager/internal/repository"
)

const (
	// transient failures (lock timeout, busy database) are retried this many
	// times before surfacing as a conflict
	maxTransientRetries = 2
	retryBackoff        = 50 * time.Millisecond
)

// LendingService orchestrates the borrow/return lifecycle. It is the only
// component that mutates Book.Available, and it always does so in the same
// transaction that touches the borrow record.
type LendingService interface {
	Borrow(ctx context.Context, principal domain.Principal, bookGUID string, requestedDays int) (*domain.BorrowRecord, error)
	Return(ctx context.Context, principal domain.Principal, borrowGUID string) (*domain.BorrowRecord, error)
	GetBorrow(ctx context.Context, principal domain.Principal, guid string) (*domain.BorrowRecord, error)
	History(ctx context.Context, principal domain.Principal, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error)
	MyHistory(ctx context.Context, principal domain.Principal, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error)
	Overdue(ctx context.Context, principal domain.Principal, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error)
}

type lendingService struct {
	uow     repository.UnitOfWork
	borrows repository.BorrowRepository
	locks   *lock.Keyed
	now     func() time.Time
}

func NewLendingService(uow repository.UnitOfWork, borrows repository.BorrowRepository, locks *lock.Keyed) LendingService {
	return &lendingService{
		uow:     uow,
		borrows: borrows,
		locks:   locks,
		now:     time.Now,
	}
}

func (s *lendingService) Borrow(ctx context.Context, principal domain.Principal, bookGUID string, requestedDays int) (*domain.BorrowRecord, error) {
	if principal.Role != domain.RolePatron {
		return nil, domain.Forbidden("only patrons can borrow books")
	}

	var record *domain.BorrowRecord
	err := s.withBookLock(ctx, bookGUID, func() error {
		return s.uow.WithinTx(ctx, func(tx repository.LendingTx) error {
			book, err := tx.Books().GetByGUID(ctx, bookGUID)
			if err != nil {
				return err
			}
			if !book.Status.IsActive() {
				return domain.NotFound("book not found")
			}
			if !book.Available {
				return domain.Conflict("book is not available for borrowing")
			}
			// Availability and the ledger are independently updatable fields;
			// the ledger is the authoritative guard and must be checked in
			// the same critical section.
			active, err := tx.Borrows().ExistsActiveForBook(ctx, book.ID)
			if err != nil {
				return err
			}
			if active {
				return domain.Conflict("book is already borrowed")
			}

			record = domain.NewBorrowRecord(book, principal, requestedDays, s.now())
			if _, err := tx.Borrows().Create(ctx, record); err != nil {
				return err
			}
			return tx.Books().SetAvailability(ctx, book.ID, false)
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *lendingService) Return(ctx context.Context, principal domain.Principal, borrowGUID string) (*domain.BorrowRecord, error) {
	// First resolve outside the lock to learn which book to serialize on.
	record, err := s.borrows.GetByGUID(ctx, borrowGUID)
	if err != nil {
		return nil, err
	}
	if record.Status == domain.BorrowStatusReturned {
		return nil, domain.Conflict("book already returned")
	}
	if principal.Role == domain.RolePatron && record.UserGUID != principal.GUID {
		return nil, domain.Forbidden("you can only return books that you borrowed")
	}

	var returned *domain.BorrowRecord
	err = s.withBookLock(ctx, record.BookGUID, func() error {
		return s.uow.WithinTx(ctx, func(tx repository.LendingTx) error {
			// Re-read under the lock: a concurrent return may have won.
			current, err := tx.Borrows().GetByGUID(ctx, borrowGUID)
			if err != nil {
				return err
			}
			if current.Status == domain.BorrowStatusReturned {
				return domain.Conflict("book already returned")
			}

			current.MarkReturned(s.now())
			if err := tx.Borrows().Update(ctx, current); err != nil {
				return err
			}
			if err := tx.Books().SetAvailability(ctx, current.BookID, true); err != nil {
				return err
			}
			returned = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

func (s *lendingService) GetBorrow(ctx context.Context, principal domain.Principal, guid string) (*domain.BorrowRecord, error) {
	record, err := s.borrows.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}
	if principal.Role == domain.RolePatron && record.UserGUID != principal.GUID {
		return nil, domain.Forbidden("you can only view your own borrow records")
	}
	return record, nil
}

func (s *lendingService) History(ctx context.Context, principal domain.Principal, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	// Patrons get a query scoped to their own records, not a post-filtered
	// view, so totals never leak other users' activity.
	if principal.Role == domain.RolePatron {
		return s.borrows.ListByUser(ctx, principal.UserID, page)
	}
	return s.borrows.List(ctx, page)
}

func (s *lendingService) MyHistory(ctx context.Context, principal domain.Principal, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	return s.borrows.ListByUser(ctx, principal.UserID, page)
}

func (s *lendingService) Overdue(ctx context.Context, principal domain.Principal, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	if !principal.Role.IsStaff() {
		return repository.Page[domain.BorrowRecord]{}, domain.Forbidden("only librarians and admins can list overdue books")
	}
	return s.borrows.ListOverdue(ctx, s.now(), page)
}

// withBookLock serializes fn on the book's key lock and retries transient
// failures a bounded number of times. Exhausted retries surface as a
// conflict the caller may resolve and retry itself.
func (s *lendingService) withBookLock(ctx context.Context, bookGUID string, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = s.lockAndRun(ctx, bookGUID, fn)
		if lastErr == nil {
			return nil
		}
		if !domain.IsKind(lastErr, domain.KindTransient) || attempt >= maxTransientRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
	if domain.IsKind(lastErr, domain.KindTransient) {
		return domain.Conflict("book is busy, try again")
	}
	return lastErr
}

func (s *lendingService) lockAndRun(ctx context.Context, bookGUID string, fn func() error) error {
	release, err := s.locks.Acquire(ctx, bookGUID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return domain.Transient("could not lock book", err)
		}
		return err
	}
	defer release()
	return fn()
}
