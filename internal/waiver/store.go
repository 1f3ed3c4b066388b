package waiver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/andrewpillar/query"

	id "retreat/pkg/domain"
	"retreat/pkg/platform/sentinel"
	txcontext "retreat/pkg/platform/tx"
)

const table = "waivers"

// MemoryStore keeps waivers in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[id.WaiverID]*Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[id.WaiverID]*Document)}
}

func (s *MemoryStore) Save(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	cp.Content = append([]byte(nil), doc.Content...)
	s.docs[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, waiverID id.WaiverID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[waiverID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, waiverID id.WaiverID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[waiverID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.docs, waiverID)
	return nil
}

// PostgresStore keeps waivers in a bytea column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, doc *Document) error {
	q := query.Insert(
		table,
		query.Columns("id", "registration_id", "content", "created_at"),
		query.Values(doc.ID.String(), doc.RegistrationID.String(), doc.Content, doc.CreatedAt),
	)
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...); err != nil {
		return fmt.Errorf("insert waiver: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, waiverID id.WaiverID) (*Document, error) {
	q := query.Select(
		query.Columns("id", "registration_id", "content", "created_at"),
		query.From(table),
		query.Where("id", "=", query.Arg(waiverID.String())),
	)
	var (
		doc           Document
		rawID, regRaw string
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, q.Build(), q.Args()...).
		Scan(&rawID, &regRaw, &doc.Content, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select waiver: %w", err)
	}
	if doc.ID, err = id.ParseWaiverID(rawID); err != nil {
		return nil, err
	}
	if doc.RegistrationID, err = id.ParseRegistrationID(regRaw); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, waiverID id.WaiverID) error {
	q := query.Delete(table, query.Where("id", "=", query.Arg(waiverID.String())))
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return fmt.Errorf("delete waiver: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
