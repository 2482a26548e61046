package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
)

const createBorrowRecordsTable = `
CREATE TABLE IF NOT EXISTS borrow_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT NOT NULL UNIQUE,
	book_id INTEGER NOT NULL REFERENCES books(id),
	user_id INTEGER NOT NULL REFERENCES users(id),
	borrow_date DATETIME NOT NULL,
	due_date DATETIME NOT NULL,
	return_date DATETIME NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_borrow_records_book_status ON borrow_records(book_id, status);
CREATE INDEX IF NOT EXISTS idx_borrow_records_user ON borrow_records(user_id);
`

// borrowColumns joins out the book and user guids so callers get explicit
// references without a second lookup.
const borrowColumns = `
br.id, br.guid, br.book_id, b.guid, br.user_id, u.guid,
br.borrow_date, br.due_date, br.return_date, br.status, br.created_at, br.updated_at`

const borrowJoins = `
FROM borrow_records br
JOIN books b ON b.id = br.book_id
JOIN users u ON u.id = br.user_id`

type BorrowRepository struct {
	db DBTX
}

func NewBorrowRepository(db *sql.DB) *BorrowRepository {
	return &BorrowRepository{db: db}
}

func (r *BorrowRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBorrowRecordsTable); err != nil {
		return fmt.Errorf("create borrow_records table: %w", err)
	}
	return nil
}

func (r *BorrowRepository) Create(ctx context.Context, record *domain.BorrowRecord) (int64, error) {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO borrow_records (guid, book_id, user_id, borrow_date, due_date, return_date, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.GUID,
		record.BookID,
		record.UserID,
		record.BorrowDate,
		record.DueDate,
		nullTime(record.ReturnDate),
		string(record.Status),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert borrow record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("borrow record last insert id: %w", err)
	}
	record.ID = id
	return id, nil
}

func (r *BorrowRepository) Update(ctx context.Context, record *domain.BorrowRecord) error {
	record.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE borrow_records
SET borrow_date=?, due_date=?, return_date=?, status=?, updated_at=?
WHERE id=?`,
		record.BorrowDate,
		record.DueDate,
		nullTime(record.ReturnDate),
		string(record.Status),
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update borrow record: %w", err)
	}
	return nil
}

func (r *BorrowRepository) GetByGUID(ctx context.Context, guid string) (*domain.BorrowRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+borrowColumns+borrowJoins+`
WHERE br.guid = ?`,
		guid,
	)
	return scanBorrowRecord(row)
}

func (r *BorrowRepository) ExistsActiveForBook(ctx context.Context, bookID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS(
	SELECT 1 FROM borrow_records
	WHERE book_id = ? AND status = ?
)`,
		bookID,
		string(domain.BorrowStatusBorrowed),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active borrow: %w", err)
	}
	return exists, nil
}

func (r *BorrowRepository) List(ctx context.Context, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	return r.listWhere(ctx, "", nil, page)
}

func (r *BorrowRepository) ListByUser(ctx context.Context, userID int64, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	return r.listWhere(ctx, "\nWHERE br.user_id = ?", []any{userID}, page)
}

func (r *BorrowRepository) ListOverdue(ctx context.Context, asOf time.Time, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	return r.listWhere(ctx,
		"\nWHERE br.status = ? AND br.due_date < ?",
		[]any{string(domain.BorrowStatusBorrowed), domain.DateOnly(asOf)},
		page,
	)
}

func (r *BorrowRepository) listWhere(ctx context.Context, where string, args []any, page repository.PageRequest) (repository.Page[domain.BorrowRecord], error) {
	page = page.Normalize()

	var total int64
	countQuery := `SELECT COUNT(*)` + borrowJoins + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return repository.Page[domain.BorrowRecord]{}, fmt.Errorf("count borrow records: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+borrowColumns+borrowJoins+where+`
ORDER BY br.id DESC
LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...,
	)
	if err != nil {
		return repository.Page[domain.BorrowRecord]{}, fmt.Errorf("query borrow records: %w", err)
	}
	defer rows.Close()

	var records []domain.BorrowRecord
	for rows.Next() {
		record, err := scanBorrowRecord(rows)
		if err != nil {
			return repository.Page[domain.BorrowRecord]{}, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[domain.BorrowRecord]{}, fmt.Errorf("iterate borrow records: %w", err)
	}

	return repository.Page[domain.BorrowRecord]{
		Items:      records,
		TotalCount: total,
		Page:       page.Page,
		Size:       page.Size,
	}, nil
}

func scanBorrowRecord(scanner interface {
	Scan(dest ...any) error
}) (*domain.BorrowRecord, error) {
	var (
		record     domain.BorrowRecord
		status     string
		returnDate sql.NullTime
	)

	if err := scanner.Scan(
		&record.ID,
		&record.GUID,
		&record.BookID,
		&record.BookGUID,
		&record.UserID,
		&record.UserGUID,
		&record.BorrowDate,
		&record.DueDate,
		&returnDate,
		&status,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFound("borrow record not found")
		}
		return nil, fmt.Errorf("scan borrow record: %w", err)
	}

	record.Status = domain.BorrowStatus(status)
	record.BorrowDate = record.BorrowDate.UTC()
	record.DueDate = record.DueDate.UTC()
	if returnDate.Valid {
		t := returnDate.Time.UTC()
		record.ReturnDate = &t
	}
	return &record, nil
}

var _ repository.BorrowRepository = (*BorrowRepository)(nil)
