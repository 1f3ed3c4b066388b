package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/andrewpillar/query"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"retreat/internal/registration/models"
	id "retreat/pkg/domain"
)

const (
	registrationTable = "registrations"
	nameSeparator     = "\n"
)

var registrationColumns = []string{
	"id", "event_slug", "guardian_id", "participant_ids", "status", "amount_cents", "currency",
	"payment_intent_id", "refund_id", "waiver_id", "signed_by", "signed_at", "submitted_from",
	"guardian_name", "guardian_email", "participant_names", "search_text",
	"created_at", "updated_at", "refunded_at",
}

type RegistrationStore struct {
	db *sql.DB
}

func participantIDStrings(ids []id.ParticipantID) []string {
	out := make([]string, len(ids))
	for i, pid := range ids {
		out[i] = pid.String()
	}
	return out
}

func (s *RegistrationStore) Create(ctx context.Context, r *models.Registration) error {
	q := query.Insert(
		registrationTable,
		query.Columns(registrationColumns...),
		query.Values(
			r.ID.String(), r.EventSlug, r.GuardianID.String(), pq.Array(participantIDStrings(r.ParticipantIDs)),
			r.Status.String(), r.AmountCents, r.Currency,
			r.PaymentIntentID, r.RefundID, r.WaiverID, r.SignedBy, r.SignedAt, r.SubmittedFrom,
			r.GuardianName, strings.ToLower(r.GuardianEmail), strings.Join(r.ParticipantNames, nameSeparator), r.SearchText(),
			r.CreatedAt, r.UpdatedAt, r.RefundedAt,
		),
	)
	_, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	return translate(err)
}

// Update rewrites the mutable columns: status, refund, waiver link and the
// denormalized copies used by search.
func (s *RegistrationStore) Update(ctx context.Context, r *models.Registration) error {
	q := query.Update(
		registrationTable,
		query.Set("status", query.Arg(r.Status.String())),
		query.Set("refund_id", query.Arg(r.RefundID)),
		query.Set("refunded_at", query.Arg(r.RefundedAt)),
		query.Set("waiver_id", query.Arg(r.WaiverID)),
		query.Set("guardian_name", query.Arg(r.GuardianName)),
		query.Set("guardian_email", query.Arg(strings.ToLower(r.GuardianEmail))),
		query.Set("participant_names", query.Arg(strings.Join(r.ParticipantNames, nameSeparator))),
		query.Set("search_text", query.Arg(r.SearchText())),
		query.Set("updated_at", query.Arg(r.UpdatedAt)),
		query.Where("id", "=", query.Arg(r.ID.String())),
	)
	res, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res)
}

func (s *RegistrationStore) SetWaiver(ctx context.Context, registrationID id.RegistrationID, waiverID string, updatedAt time.Time) error {
	q := query.Update(
		registrationTable,
		query.Set("waiver_id", query.Arg(waiverID)),
		query.Set("updated_at", query.Arg(updatedAt)),
		query.Where("id", "=", query.Arg(registrationID.String())),
	)
	res, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res)
}

func (s *RegistrationStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	return s.findOne(ctx, query.Where("id", "=", query.Arg(registrationID.String())))
}

func (s *RegistrationStore) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Registration, error) {
	return s.findOne(ctx, query.Where("payment_intent_id", "=", query.Arg(paymentIntentID)))
}

func (s *RegistrationStore) findOne(ctx context.Context, where query.Option) (*models.Registration, error) {
	q := query.Select(query.Columns(registrationColumns...), query.From(registrationTable), where)
	r, err := scanRegistration(exec(ctx, s.db).QueryRowContext(ctx, q.Build(), q.Args()...))
	if err != nil {
		return nil, translate(err)
	}
	return r, nil
}

// List matches each query term against the stored search_text column, the
// same haystack models.Filter.Matches uses in memory.
func (s *RegistrationStore) List(ctx context.Context, filter models.Filter) ([]*models.Registration, error) {
	opts := []query.Option{query.From(registrationTable)}
	if filter.Status != "" {
		opts = append(opts, query.Where("status", "=", query.Arg(filter.Status.String())))
	}
	for _, term := range strings.Fields(strings.ToLower(filter.Query)) {
		opts = append(opts, query.Where("search_text", "LIKE", query.Arg("%"+escapeLike(term)+"%")))
	}
	opts = append(opts, query.OrderDesc("created_at"))

	q := query.Select(query.Columns(registrationColumns...), opts...)
	rows, err := exec(ctx, s.db).QueryContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]*models.Registration, 0)
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RegistrationStore) CountByGuardian(ctx context.Context, guardianID id.GuardianID) (int, error) {
	q := query.Select(
		query.Count("id"),
		query.From(registrationTable),
		query.Where("guardian_id", "=", query.Arg(guardianID.String())),
	)
	var n int
	if err := exec(ctx, s.db).QueryRowContext(ctx, q.Build(), q.Args()...).Scan(&n); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *RegistrationStore) CountParticipants(ctx context.Context, eventSlug string) (int, error) {
	var n int
	err := exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cardinality(participant_ids)), 0)
		FROM registrations
		WHERE event_slug = $1 AND status = $2
	`, eventSlug, models.StatusConfirmed.String()).Scan(&n)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *RegistrationStore) Delete(ctx context.Context, registrationID id.RegistrationID) error {
	q := query.Delete(registrationTable, query.Where("id", "=", query.Arg(registrationID.String())))
	res, err := exec(ctx, s.db).ExecContext(ctx, q.Build(), q.Args()...)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res)
}

func scanRegistration(row scanner) (*models.Registration, error) {
	var (
		r              models.Registration
		rid, gid       uuid.UUID
		participantIDs pq.StringArray
		status         string
		names          string
		searchText     string
	)
	err := row.Scan(
		&rid, &r.EventSlug, &gid, &participantIDs, &status, &r.AmountCents, &r.Currency,
		&r.PaymentIntentID, &r.RefundID, &r.WaiverID, &r.SignedBy, &r.SignedAt, &r.SubmittedFrom,
		&r.GuardianName, &r.GuardianEmail, &names, &searchText,
		&r.CreatedAt, &r.UpdatedAt, &r.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID, r.GuardianID, r.Status = id.RegistrationID(rid), id.GuardianID(gid), models.Status(status)
	for _, raw := range participantIDs {
		pid, err := id.ParseParticipantID(raw)
		if err != nil {
			return nil, err
		}
		r.ParticipantIDs = append(r.ParticipantIDs, pid)
	}
	if names != "" {
		r.ParticipantNames = strings.Split(names, nameSeparator)
	}
	return &r, nil
}
