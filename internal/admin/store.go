package admin

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/andrewpillar/query"
	"github.com/google/uuid"

	pgplatform "retreat/internal/platform/postgres"
	"retreat/pkg/platform/sentinel"
)

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]User)}
}

func (s *MemoryUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.users[key]; ok {
		return sentinel.ErrConflict
	}
	s.users[key] = *u
	return nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) RecordLogin(_ context.Context, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, u := range s.users {
		if u.ID == userID {
			u.LastLoginAt = &at
			s.users[key] = u
			return nil
		}
	}
	return sentinel.ErrNotFound
}

const adminUserTable = "admin_users"

var adminUserColumns = []string{"id", "email", "first_name", "last_name", "password_hash", "created_at", "last_login_at"}

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, u *User) error {
	q := query.Insert(
		adminUserTable,
		query.Columns(adminUserColumns...),
		query.Values(u.ID.String(), strings.ToLower(u.Email), u.FirstName, u.LastName, u.PasswordHash, u.CreatedAt, u.LastLoginAt),
	)
	if _, err := s.db.ExecContext(ctx, q.Build(), q.Args()...); err != nil {
		if pgplatform.IsUniqueViolation(err, "admin_users_email_key") {
			return sentinel.ErrConflict
		}
		return err
	}
	return nil
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	q := query.Select(
		query.Columns(adminUserColumns...),
		query.From(adminUserTable),
		query.Where("email", "=", query.Arg(strings.ToLower(email))),
	)
	var u User
	err := s.db.QueryRowContext(ctx, q.Build(), q.Args()...).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresUserStore) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	q := query.Update(
		adminUserTable,
		query.Set("last_login_at", query.Arg(at)),
		query.Where("id", "=", query.Arg(userID.String())),
	)
	res, err := s.db.ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
