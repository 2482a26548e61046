package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
)

const createBooksTable = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	isbn TEXT NOT NULL UNIQUE,
	genre TEXT NOT NULL DEFAULT '',
	publication_date DATETIME NULL,
	description TEXT NOT NULL DEFAULT '',
	available INTEGER NOT NULL DEFAULT 1,
	status TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const bookColumns = `id, guid, title, author, isbn, genre, publication_date, description, available, status, created_at, updated_at`

type BookRepository struct {
	db DBTX
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBooksTable); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) (int64, error) {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO books (guid, title, author, isbn, genre, publication_date, description, available, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.GUID,
		book.Title,
		book.Author,
		book.ISBN,
		book.Genre,
		nullTime(book.PublicationDate),
		book.Description,
		book.Available,
		string(book.Status),
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return 0, domain.Conflict("book with ISBN already exists")
		}
		return 0, fmt.Errorf("insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("book last insert id: %w", err)
	}
	book.ID = id
	return id, nil
}

func (r *BookRepository) Update(ctx context.Context, book *domain.Book) error {
	book.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE books
SET title=?, author=?, isbn=?, genre=?, publication_date=?, description=?, available=?, status=?, updated_at=?
WHERE id=?`,
		book.Title,
		book.Author,
		book.ISBN,
		book.Genre,
		nullTime(book.PublicationDate),
		book.Description,
		book.Available,
		string(book.Status),
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.Conflict("book with ISBN already exists")
		}
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (r *BookRepository) GetByGUID(ctx context.Context, guid string) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+bookColumns+`
FROM books
WHERE guid = ?`,
		guid,
	)
	return scanBook(row)
}

func (r *BookRepository) FindByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+bookColumns+`
FROM books
WHERE isbn = ?`,
		isbn,
	)
	return scanBook(row)
}

func (r *BookRepository) Search(ctx context.Context, filter repository.BookFilter, page repository.PageRequest) (repository.Page[domain.Book], error) {
	page = page.Normalize()

	where, args := buildBookFilter(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return repository.Page[domain.Book]{}, fmt.Errorf("count books: %w", err)
	}

	query := `
SELECT ` + bookColumns + `
FROM books` + where + `
ORDER BY id ASC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return repository.Page[domain.Book]{}, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return repository.Page[domain.Book]{}, err
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[domain.Book]{}, fmt.Errorf("iterate books: %w", err)
	}

	return repository.Page[domain.Book]{
		Items:      books,
		TotalCount: total,
		Page:       page.Page,
		Size:       page.Size,
	}, nil
}

func (r *BookRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET available=?, updated_at=?
WHERE id=?`,
		available,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set book availability: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("availability rows affected: %w", err)
	}
	if aff == 0 {
		return domain.NotFound("book not found")
	}
	return nil
}

func (r *BookRepository) SetStatus(ctx context.Context, id int64, status domain.EntityStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET status=?, updated_at=?
WHERE id=?`,
		string(status),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set book status: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("status rows affected: %w", err)
	}
	if aff == 0 {
		return domain.NotFound("book not found")
	}
	return nil
}

func buildBookFilter(filter repository.BookFilter) (string, []any) {
	var clauses []string
	var args []any

	like := func(column, value string) {
		clauses = append(clauses, fmt.Sprintf("%s LIKE ? COLLATE NOCASE", column))
		args = append(args, "%"+value+"%")
	}

	if filter.Title != "" {
		like("title", filter.Title)
	}
	if filter.Author != "" {
		like("author", filter.Author)
	}
	if filter.ISBN != "" {
		like("isbn", filter.ISBN)
	}
	if filter.Genre != "" {
		like("genre", filter.Genre)
	}
	if filter.Available != nil {
		clauses = append(clauses, "available = ?")
		args = append(args, *filter.Available)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(clauses, " AND "), args
}

func scanBook(scanner interface {
	Scan(dest ...any) error
}) (*domain.Book, error) {
	var (
		book        domain.Book
		status      string
		publication sql.NullTime
	)

	if err := scanner.Scan(
		&book.ID,
		&book.GUID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&book.Genre,
		&publication,
		&book.Description,
		&book.Available,
		&status,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFound("book not found")
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}

	book.Status = domain.EntityStatus(status)
	if publication.Valid {
		t := publication.Time.UTC()
		book.PublicationDate = &t
	}
	return &book, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

var _ repository.BookRepository = (*BookRepository)(nil)
