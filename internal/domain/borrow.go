package domain

import (
	"time"

	"github.com/google/uuid"
)

// BorrowStatus is the state of a borrow record. BORROWED transitions to
// RETURNED exactly once; RETURNED is terminal.
type BorrowStatus string

const (
	BorrowStatusBorrowed BorrowStatus = "BORROWED"
	BorrowStatusReturned BorrowStatus = "RETURNED"
)

const (
	MinBorrowDays = 1
	MaxBorrowDays = 30
)

// ClampBorrowDays bounds a requested loan period into [MinBorrowDays,
// MaxBorrowDays]. Out-of-range values are clamped, not rejected.
func ClampBorrowDays(days int) int {
	if days < MinBorrowDays {
		return MinBorrowDays
	}
	if days > MaxBorrowDays {
		return MaxBorrowDays
	}
	return days
}

// BorrowRecord tracks one loan of one book to one user. Records are never
// deleted; history is permanent.
type BorrowRecord struct {
	ID         int64
	GUID       string
	BookID     int64
	BookGUID   string
	UserID     int64
	UserGUID   string
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     BorrowStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewBorrowRecord opens a loan of book to the borrower, due after the
// clamped number of days. Dates are day-granular.
func NewBorrowRecord(book *Book, borrower Principal, requestedDays int, now time.Time) *BorrowRecord {
	borrowDate := DateOnly(now)
	days := ClampBorrowDays(requestedDays)
	return &BorrowRecord{
		GUID:       uuid.NewString(),
		BookID:     book.ID,
		BookGUID:   book.GUID,
		UserID:     borrower.UserID,
		UserGUID:   borrower.GUID,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.AddDate(0, 0, days),
		Status:     BorrowStatusBorrowed,
	}
}

// Overdue reports whether the loan is past due as of now. It is derived,
// never stored: "today" advances independent of writes, and a returned
// record is never overdue regardless of its due date.
func (r *BorrowRecord) Overdue(now time.Time) bool {
	return r.Status == BorrowStatusBorrowed && DateOnly(now).After(r.DueDate)
}

// MarkReturned closes the loan. The caller must have verified the record is
// still BORROWED; calling this twice would overwrite the first return date.
func (r *BorrowRecord) MarkReturned(now time.Time) {
	returned := DateOnly(now)
	r.ReturnDate = &returned
	r.Status = BorrowStatusReturned
}

// DateOnly truncates t to midnight UTC. Borrow, due and return dates are
// compared at day granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
