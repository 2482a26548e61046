package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
)

// UnitOfWork runs lending mutations inside a single sqlite transaction.
// A failure anywhere in fn rolls back every write, so a book is never left
// marked unavailable without a matching borrow record (or vice versa).
type UnitOfWork struct {
	db *sql.DB
}

func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(tx repository.LendingTx) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return domain.Transient("database busy", err)
		}
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txView{tx: tx}); err != nil {
		if isBusy(err) {
			return domain.Transient("database busy", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return domain.Transient("database busy", err)
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txView struct {
	tx *sql.Tx
}

func (v *txView) Books() repository.BookRepository {
	return &BookRepository{db: v.tx}
}

func (v *txView) Borrows() repository.BorrowRepository {
	return &BorrowRepository{db: v.tx}
}

var _ repository.UnitOfWork = (*UnitOfWork)(nil)
