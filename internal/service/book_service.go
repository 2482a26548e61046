package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
)

// BookInput carries the caller-supplied bibliographic fields for create and
// update operations.
type BookInput struct {
	Title           string
	Author          string
	ISBN            string
	Genre           string
	PublicationDate *time.Time
	Description     string
}

// BookService manages the catalog. Availability is deliberately absent from
// BookInput: it changes only through the lending service.
type BookService interface {
	Create(ctx context.Context, input BookInput) (*domain.Book, error)
	GetByGUID(ctx context.Context, guid string) (*domain.Book, error)
	Update(ctx context.Context, guid string, input BookInput) (*domain.Book, error)
	Delete(ctx context.Context, guid string) error
	Activate(ctx context.Context, guid string) (*domain.Book, error)
	Search(ctx context.Context, filter repository.BookFilter, page repository.PageRequest) (repository.Page[domain.Book], error)
	IsAvailable(ctx context.Context, guid string) (bool, error)
}

type bookService struct {
	books repository.BookRepository
}

func NewBookService(books repository.BookRepository) BookService {
	return &bookService{books: books}
}

func (s *bookService) Create(ctx context.Context, input BookInput) (*domain.Book, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.ISBN = strings.TrimSpace(input.ISBN)
	if input.Title == "" {
		return nil, errors.New("title is required")
	}
	if input.Author == "" {
		return nil, errors.New("author is required")
	}
	if input.ISBN == "" {
		return nil, errors.New("isbn is required")
	}

	if _, err := s.books.FindByISBN(ctx, input.ISBN); err == nil {
		return nil, domain.Conflict("book with ISBN already exists")
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	book := domain.NewBook(input.Title, input.Author, input.ISBN, input.Genre, input.Description, input.PublicationDate)
	if _, err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) GetByGUID(ctx context.Context, guid string) (*domain.Book, error) {
	return s.books.GetByGUID(ctx, guid)
}

func (s *bookService) Update(ctx context.Context, guid string, input BookInput) (*domain.Book, error) {
	book, err := s.books.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}

	input.ISBN = strings.TrimSpace(input.ISBN)
	if input.ISBN != "" && input.ISBN != book.ISBN {
		if _, err := s.books.FindByISBN(ctx, input.ISBN); err == nil {
			return nil, domain.Conflict("book with ISBN already exists")
		} else if !domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		book.ISBN = input.ISBN
	}

	if input.Title != "" {
		book.Title = input.Title
	}
	if input.Author != "" {
		book.Author = input.Author
	}
	book.Genre = input.Genre
	book.Description = input.Description
	if input.PublicationDate != nil {
		book.PublicationDate = input.PublicationDate
	}

	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) Delete(ctx context.Context, guid string) error {
	book, err := s.books.GetByGUID(ctx, guid)
	if err != nil {
		return err
	}
	book.Delete()
	return s.books.SetStatus(ctx, book.ID, book.Status)
}

func (s *bookService) Activate(ctx context.Context, guid string) (*domain.Book, error) {
	book, err := s.books.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}
	book.Activate()
	if err := s.books.SetStatus(ctx, book.ID, book.Status); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) Search(ctx context.Context, filter repository.BookFilter, page repository.PageRequest) (repository.Page[domain.Book], error) {
	return s.books.Search(ctx, filter, page)
}

func (s *bookService) IsAvailable(ctx context.Context, guid string) (bool, error) {
	book, err := s.books.GetByGUID(ctx, guid)
	if err != nil {
		return false, err
	}
	return book.Available, nil
}
