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

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const userColumns = `id, guid, username, password_hash, first_name, last_name, role, status, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (guid, username, password_hash, first_name, last_name, role, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.GUID,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		string(user.Status),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return 0, domain.Conflict("user already exists")
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE users
SET username=?, password_hash=?, first_name=?, last_name=?, role=?, status=?, updated_at=?
WHERE id=?`,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		string(user.Status),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.Conflict("user already exists")
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByGUID(ctx context.Context, guid string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE guid = ?`,
		guid,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE username = ?`,
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) Search(ctx context.Context, filter repository.UserFilter, page repository.PageRequest) (repository.Page[domain.User], error) {
	page = page.Normalize()

	var clauses []string
	var args []any
	like := func(column, value string) {
		clauses = append(clauses, fmt.Sprintf("%s LIKE ? COLLATE NOCASE", column))
		args = append(args, "%"+value+"%")
	}
	if filter.Username != "" {
		like("username", filter.Username)
	}
	if filter.FirstName != "" {
		like("first_name", filter.FirstName)
	}
	if filter.LastName != "" {
		like("last_name", filter.LastName)
	}
	if filter.Role != nil {
		clauses = append(clauses, "role = ?")
		args = append(args, string(*filter.Role))
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}

	where := ""
	if len(clauses) > 0 {
		where = "\nWHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return repository.Page[domain.User]{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users`+where+`
ORDER BY id ASC
LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...,
	)
	if err != nil {
		return repository.Page[domain.User]{}, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return repository.Page[domain.User]{}, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[domain.User]{}, fmt.Errorf("iterate users: %w", err)
	}

	return repository.Page[domain.User]{
		Items:      users,
		TotalCount: total,
		Page:       page.Page,
		Size:       page.Size,
	}, nil
}

func (r *UserRepository) SetStatus(ctx context.Context, id int64, status domain.EntityStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET status=?, updated_at=?
WHERE id=?`,
		string(status),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("status rows affected: %w", err)
	}
	if aff == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

func scanUser(scanner interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user   domain.User
		role   string
		status string
	)

	if err := scanner.Scan(
		&user.ID,
		&user.GUID,
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&role,
		&status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFound("user not found")
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.Role = domain.Role(role)
	user.Status = domain.EntityStatus(status)
	return &user, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
