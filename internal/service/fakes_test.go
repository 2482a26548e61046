package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
)

// memStore is an in-memory stand-in for the sqlite repositories. It backs a
// BookRepository, a BorrowRepository, a UserRepository and a UnitOfWork view
// over the same data, guarded by one mutex.
type memStore struct {
	mu           sync.Mutex
	books        map[int64]*domain.Book
	users        map[int64]*domain.User
	borrows      []*domain.BorrowRecord
	nextBookID   int64
	nextUserID   int64
	nextBorrowID int64
}

func newMemStore() *memStore {
	return &memStore{
		books: make(map[int64]*domain.Book),
		users: make(map[int64]*domain.User),
	}
}

func (s *memStore) addBook(book *domain.Book) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBookID++
	book.ID = s.nextBookID
	s.books[book.ID] = book
	return book
}

func (s *memStore) addUser(user *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	user.ID = s.nextUserID
	s.users[user.ID] = user
	return user
}

func (s *memStore) bookByID(id int64) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.books[id]; ok {
		clone := *b
		return &clone
	}
	return nil
}

func (s *memStore) borrowByGUID(guid string) *domain.BorrowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.borrows {
		if r.GUID == guid {
			clone := *r
			return &clone
		}
	}
	return nil
}

func (s *memStore) activeBorrowCount(bookID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.borrows {
		if r.BookID == bookID && r.Status == domain.BorrowStatusBorrowed {
			n++
		}
	}
	return n
}

// UnitOfWork: the fakes never fail mid-sequence, so applying writes directly
// is equivalent to a committed transaction.
func (s *memStore) WithinTx(_ context.Context, fn func(tx repository.LendingTx) error) error {
	return fn(s)
}

func (s *memStore) Books() repository.BookRepository     { return memBooks{s} }
func (s *memStore) Borrows() repository.BorrowRepository { return memBorrows{s} }
func (s *memStore) Users() repository.UserRepository     { return memUsers{s} }

type memBooks struct{ s *memStore }

var _ repository.BookRepository = memBooks{}

func (m memBooks) Init(context.Context) error { return nil }

func (m memBooks) Create(_ context.Context, book *domain.Book) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, b := range m.s.books {
		if b.ISBN == book.ISBN {
			return 0, domain.Conflict("book with ISBN already exists")
		}
	}
	m.s.nextBookID++
	book.ID = m.s.nextBookID
	clone := *book
	m.s.books[book.ID] = &clone
	return book.ID, nil
}

func (m memBooks) Update(_ context.Context, book *domain.Book) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.books[book.ID]; !ok {
		return domain.NotFound("book not found")
	}
	clone := *book
	m.s.books[book.ID] = &clone
	return nil
}

func (m memBooks) GetByGUID(_ context.Context, guid string) (*domain.Book, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, b := range m.s.books {
		if b.GUID == guid {
			clone := *b
			return &clone, nil
		}
	}
	return nil, domain.NotFound("book not found")
}

func (m memBooks) FindByISBN(_ context.Context, isbn string) (*domain.Book, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, b := range m.s.books {
		if b.ISBN == isbn {
			clone := *b
			return &clone, nil
		}
	}
	return nil, domain.NotFound("book not found")
}

func (m memBooks) Search(_ context.Context, filter repository.BookFilter, page repository.PageRequest) (repository.Page[domain.Book], error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var matched []domain.Book
	for _, b := range m.s.books {
		if filter.Title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(filter.Title)) {
			continue
		}
		if filter.Author != "" && !strings.Contains(strings.ToLower(b.Author), strings.ToLower(filter.Author)) {
			continue
		}
		if filter.ISBN != "" && b.ISBN != filter.ISBN {
			continue
		}
		if filter.Genre != "" && !strings.EqualFold(b.Genre, filter.Genre) {
			continue
		}
		if filter.Available != nil && b.Available != *filter.Available {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		matched = append(matched, *b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return pageOf(matched, page), nil
}

func (m memBooks) SetAvailability(_ context.Context, id int64, available bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.books[id]
	if !ok {
		return domain.NotFound("book not found")
	}
	b.Available = available
	return nil
}

func (m memBooks) SetStatus(_ context.Context, id int64, status domain.EntityStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.books[id]
	if !ok {
		return domain.NotFound("book not found")
	}
	b.Status = status
	return nil
}

type memBorrows struct{ s *memStore }

var _ repository.BorrowRepository = memBorrows{}

func (m memBorrows) Init(context.Context) error { return nil }

func (m memBorrows) Create(_ context.Context, record *domain.BorrowRecord) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextBorrowID++
	record.ID = m.s.nextBorrowID
	clone := *record
	m.s.borrows = append(m.s.borrows, &clone)
	return record.ID, nil
}

func (m memBorrows) Update(_ context.Context, record *domain.BorrowRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i, r := range m.s.borrows {
		if r.ID == record.ID {
			clone := *record
			m.s.borrows[i] = &clone
			return nil
		}
	}
	return domain.NotFound("borrow record not found")
}

func (m memBorrows) GetByGUID(_ context.Context, guid string) (*domain.BorrowRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.borrows {
		if r.GUID == guid {
			clone := *r
			return &clone, nil
		}
	}
	return nil, domain.NotFound("borrow record not found")
}

func (m memBorrows) ExistsActiveForBook(_ context.Context, bookID int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.borrows {
		if r.BookID == bookID && r.Status == domain.BorrowStatusBorrowed {
			return true, nil
		}
	}
	return false, nil
}

func (m memBorrows) List(_ context.Context, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	return m.list(page, func(*domain.BorrowRecord) bool { return true }), nil
}

func (m memBorrows) ListByUser(_ context.Context, userID int64, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	return m.list(page, func(r *domain.BorrowRecord) bool { return r.UserID == userID }), nil
}

func (m memBorrows) ListOverdue(_ context.Context, asOf time.Time, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	return m.list(page, func(r *domain.BorrowRecord) bool { return r.Overdue(asOf) }), nil
}

func (m memBorrows) list(page repository.PageRequest, keep func(*domain.BorrowRecord) bool) repository.Page[domain.BorrowRecord] {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var matched []domain.BorrowRecord
	for _, r := range m.s.borrows {
		if keep(r) {
			matched = append(matched, *r)
		}
	}
	// newest first, like the sqlite repository
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageOf(matched, page)
}

type memUsers struct{ s *memStore }

var _ repository.UserRepository = memUsers{}

func (m memUsers) Init(context.Context) error { return nil }

func (m memUsers) Create(_ context.Context, user *domain.User) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Username == user.Username {
			return 0, domain.Conflict("user already exists")
		}
	}
	m.s.nextUserID++
	user.ID = m.s.nextUserID
	clone := *user
	m.s.users[user.ID] = &clone
	return user.ID, nil
}

func (m memUsers) Update(_ context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[user.ID]; !ok {
		return domain.NotFound("user not found")
	}
	clone := *user
	m.s.users[user.ID] = &clone
	return nil
}

func (m memUsers) GetByGUID(_ context.Context, guid string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.GUID == guid {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.NotFound("user not found")
}

func (m memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.NotFound("user not found")
}

func (m memUsers) Search(_ context.Context, filter repository.UserFilter, page repository.PageRequest) (repository.Page[domain.User], error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var matched []domain.User
	for _, u := range m.s.users {
		if filter.Username != "" && !strings.Contains(strings.ToLower(u.Username), strings.ToLower(filter.Username)) {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		matched = append(matched, *u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return pageOf(matched, page), nil
}

func (m memUsers) SetStatus(_ context.Context, id int64, status domain.EntityStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return domain.NotFound("user not found")
	}
	u.Status = status
	return nil
}

func (m memUsers) Count(context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.users)), nil
}

func pageOf[T any](items []T, page repository.PageRequest) repository.Page[T] {
	page = page.Normalize()
	total := int64(len(items))
	start := page.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return repository.Page[T]{
		Items:      items[start:end],
		TotalCount: total,
		Page:       page.Page,
		Size:       page.Size,
	}
}
