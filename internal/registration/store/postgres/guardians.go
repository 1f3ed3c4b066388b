package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/andrewpillar/query"
	"github.com/google/uuid"

	"retreat/internal/registration/models"
	id "retreat/pkg/domain"
)

const guardianTable = "guardians"

var guardianColumns = []string{"id", "first_name", "last_name", "email", "phone", "address", "created_at", "updated_at"}

type GuardianStore struct {
	db *sql.DB
}

func (s *GuardianStore) Create(ctx context.Context, g *models.Guardian) error {
	q := query.Insert(
		guardianTable,
		query.Columns(guardianColumns...),
		query.Values(g.ID.String(), g.FirstName, g.LastName, strings.ToLower(g.Email), g.Phone, g.Address, g.CreatedAt, g.UpdatedAt),
	)
	_, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	return translate(err)
}

func (s *GuardianStore) Update(ctx context.Context, g *models.Guardian) error {
	q := query.Update(
		guardianTable,
		query.Set("first_name", query.Arg(g.FirstName)),
		query.Set("last_name", query.Arg(g.LastName)),
		query.Set("email", query.Arg(strings.ToLower(g.Email))),
		query.Set("phone", query.Arg(g.Phone)),
		query.Set("address", query.Arg(g.Address)),
		query.Set("updated_at", query.Arg(g.UpdatedAt)),
		query.Where("id", "=", query.Arg(g.ID.String())),
	)
	res, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res)
}

func (s *GuardianStore) FindByID(ctx context.Context, guardianID id.GuardianID) (*models.Guardian, error) {
	return s.findOne(ctx, query.Where("id", "=", query.Arg(guardianID.String())))
}

func (s *GuardianStore) FindByEmail(ctx context.Context, email string) (*models.Guardian, error) {
	return s.findOne(ctx, query.Where("email", "=", query.Arg(strings.ToLower(strings.TrimSpace(email)))))
}

func (s *GuardianStore) findOne(ctx context.Context, where query.Option) (*models.Guardian, error) {
	q := query.Select(query.Columns(guardianColumns...), query.From(guardianTable), where)
	g, err := scanGuardian(exec(ctx, s.db).QueryRowContext(ctx, q.Build(), q.Args()...))
	if err != nil {
		return nil, translate(err)
	}
	return g, nil
}

func (s *GuardianStore) Delete(ctx context.Context, guardianID id.GuardianID) error {
	q := query.Delete(guardianTable, query.Where("id", "=", query.Arg(guardianID.String())))
	res, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res)
}

func scanGuardian(row scanner) (*models.Guardian, error) {
	var (
		g   models.Guardian
		gid uuid.UUID
	)
	if err := row.Scan(&gid, &g.FirstName, &g.LastName, &g.Email, &g.Phone, &g.Address, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.ID = id.GuardianID(gid)
	return &g, nil
}
