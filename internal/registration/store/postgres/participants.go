package postgres

import (
	"context"
	"database/sql"

	"github.com/andrewpillar/query"
	"github.com/google/uuid"

	"retreat/internal/registration/models"
	id "retreat/pkg/domain"
)

const participantTable = "participants"

var participantColumns = []string{
	"id", "guardian_id", "registration_id", "first_name", "last_name", "birth_date",
	"gender", "grade", "shirt_size", "allergies", "medical",
	"emergency_name", "emergency_phone", "emergency_relationship", "created_at",
}

type ParticipantStore struct {
	db *sql.DB
}

func (s *ParticipantStore) CreateMany(ctx context.Context, participants []*models.Participant) error {
	for _, p := range participants {
		q := query.Insert(
			participantTable,
			query.Columns(participantColumns...),
			query.Values(
				p.ID.String(), p.GuardianID.String(), p.RegistrationID.String(), p.FirstName, p.LastName, p.BirthDate,
				p.Gender, p.Grade, p.ShirtSize, p.Allergies, p.Medical,
				p.EmergencyContact.Name, p.EmergencyContact.Phone, p.EmergencyContact.Relationship, p.CreatedAt,
			),
		)
		if _, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...); err != nil {
			return translate(err)
		}
	}
	return nil
}

func (s *ParticipantStore) ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]*models.Participant, error) {
	q := query.Select(
		query.Columns(participantColumns...),
		query.From(participantTable),
		query.Where("registration_id", "=", query.Arg(registrationID.String())),
	)
	rows, err := exec(ctx, s.db).QueryContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]*models.Participant, 0)
	for rows.Next() {
		var (
			p               models.Participant
			pid, gid, regID uuid.UUID
		)
		err := rows.Scan(&pid, &gid, &regID, &p.FirstName, &p.LastName, &p.BirthDate,
			&p.Gender, &p.Grade, &p.ShirtSize, &p.Allergies, &p.Medical,
			&p.EmergencyContact.Name, &p.EmergencyContact.Phone, &p.EmergencyContact.Relationship, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		p.ID, p.GuardianID, p.RegistrationID = id.ParticipantID(pid), id.GuardianID(gid), id.RegistrationID(regID)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *ParticipantStore) DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) (int, error) {
	q := query.Delete(participantTable, query.Where("registration_id", "=", query.Arg(registrationID.String())))
	res, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
