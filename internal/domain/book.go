package domain

import (
	"time"

	"github.com/google/uuid"
)

// Book is a catalog entry. Available is mutated only as a side effect of
// borrow/return on the linked borrow record; the two must stay in lockstep.
type Book struct {
	ID              int64
	GUID            string
	Title           string
	Author          string
	ISBN            string
	Genre           string
	PublicationDate *time.Time
	Description     string
	Available       bool
	Status          EntityStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBook creates a catalog entry that is immediately lendable.
func NewBook(title, author, isbn, genre, description string, publicationDate *time.Time) *Book {
	return &Book{
		GUID:            uuid.NewString(),
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		Genre:           genre,
		PublicationDate: publicationDate,
		Description:     description,
		Available:       true,
		Status:          EntityStatusActive,
	}
}

// Delete soft-deletes the book. Idempotent.
func (b *Book) Delete() {
	b.Status = EntityStatusDeleted
}

// Activate restores a soft-deleted book.
func (b *Book) Activate() {
	b.Status = EntityStatusActive
}
