package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"retreat/internal/audit"
	"retreat/internal/registration/models"
	dErrors "retreat/pkg/domain-errors"
)

var exportHeader = []string{
	"registration_id", "status", "registered_at",
	"guardian_name", "guardian_email", "guardian_phone", "guardian_address",
	"participant_first_name", "participant_last_name", "birth_date", "age_at_start",
	"gender", "grade", "shirt_size", "allergies", "medical",
	"emergency_contact_name", "emergency_contact_phone", "emergency_contact_relationship",
	"amount", "currency", "payment_intent_id", "refund_id", "waiver_signed_by",
}

// ExportCSV writes one row per participant of every registration matching
// the filter. Paging fields are ignored.
func (s *Service) ExportCSV(ctx context.Context, filter models.Filter, w io.Writer, actor string) (rows int, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "ExportCSV")
	defer func() {
		endSpan(span, err)
		if s.metrics != nil {
			s.metrics.ObserveExport(start)
		}
	}()

	filter.Normalize()
	all, err := s.stores.Registrations.List(ctx, filter)
	if err != nil {
		return 0, storeError(err, "registrations")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
	}
	for _, reg := range all {
		if err := ctx.Err(); err != nil {
			return rows, dErrors.Wrap(err, dErrors.CodeTimeout, "export cancelled")
		}
		details, err := s.loadDetails(ctx, reg)
		if err != nil {
			return rows, err
		}
		for _, p := range details.Participants {
			if err := cw.Write(s.exportRow(details, p)); err != nil {
				return rows, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
			}
			rows++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
	}

	s.logAudit(ctx, audit.ActionRegistrationsExported,
		"actor", actor,
		"rows", strconv.Itoa(rows),
		"query", filter.Query,
		"status", filter.Status.String(),
	)
	return rows, nil
}

func (s *Service) exportRow(d *models.RegistrationDetails, p *models.Participant) []string {
	reg, g := d.Registration, d.Guardian
	row := []string{
		reg.ID.String(), reg.Status.String(), reg.CreatedAt.UTC().Format(time.RFC3339),
		g.FullName(), g.Email, g.Phone, g.Address,
		p.FirstName, p.LastName, p.BirthDate.Format(models.BirthDateLayout), strconv.Itoa(s.event.AgeOn(p.BirthDate)),
		p.Gender, p.Grade, p.ShirtSize, p.Allergies, p.Medical,
		p.EmergencyContact.Name, p.EmergencyContact.Phone, p.EmergencyContact.Relationship,
		fmt.Sprintf("%d.%02d", reg.AmountCents/100, reg.AmountCents%100), strings.ToUpper(reg.Currency),
		reg.PaymentIntentID, reg.RefundID, reg.SignedBy,
	}
	for i, cell := range row {
		row[i] = escapeFormula(cell)
	}
	return row
}

// escapeFormula stops spreadsheet apps from evaluating user input.
func escapeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + cell
	}
	return cell
}
