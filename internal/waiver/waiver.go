// Package waiver renders the signed participation waiver as a PDF and keeps
// the rendered documents.
package waiver

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"retreat/internal/event"
	"retreat/internal/registration/models"
	id "retreat/pkg/domain"
)

const ContentType = "application/pdf"

const defaultText = "I, the undersigned parent or legal guardian, give permission for the " +
	"participant(s) listed above to attend the retreat and take part in all scheduled " +
	"activities. I understand that these activities involve inherent risks, and I release " +
	"the organizers, staff and volunteers from liability for injury or loss except where " +
	"caused by gross negligence. In a medical emergency I authorize staff to obtain " +
	"treatment for the participant(s) if I cannot be reached. I confirm that the medical " +
	"and allergy information provided is complete and accurate."

var ErrIncomplete = errors.New("waiver requires a registration with guardian and participants")

// Document is a rendered waiver.
type Document struct {
	ID             id.WaiverID       `json:"id"`
	RegistrationID id.RegistrationID `json:"registration_id"`
	Content        []byte            `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Filename is the download name used by the admin portal and email attachment.
func (d *Document) Filename() string {
	return "waiver-" + d.RegistrationID.String() + ".pdf"
}

// Generate renders the waiver for a confirmed registration.
func Generate(ev event.Event, d *models.RegistrationDetails) ([]byte, error) {
	if d == nil || d.Registration == nil || d.Guardian == nil || len(d.Participants) == 0 {
		return nil, ErrIncomplete
	}
	reg := d.Registration

	pdf := fpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(ev.Name+" Waiver"), false)
	pdf.SetAuthor(tr(ev.Name), false)
	pdf.SetCreationDate(reg.CreatedAt)
	pdf.SetModificationDate(reg.CreatedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Participation Waiver and Release"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(ev.Name), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s, %s to %s", ev.Location,
		ev.StartsAt.Format("January 2, 2006"), ev.EndsAt.Format("January 2, 2006"))), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section(pdf, tr, "Parent / Guardian")
	field(pdf, tr, "Name", d.Guardian.FullName())
	field(pdf, tr, "Email", d.Guardian.Email)
	field(pdf, tr, "Phone", d.Guardian.Phone)
	if d.Guardian.Address != "" {
		field(pdf, tr, "Address", d.Guardian.Address)
	}
	pdf.Ln(4)

	section(pdf, tr, "Participants")
	for i, p := range d.Participants {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%d. %s", i+1, p.FullName())), "", 1, "L", false, 0, "")
		field(pdf, tr, "Date of birth", fmt.Sprintf("%s (age %d at start)", p.BirthDate.Format(models.BirthDateLayout), ev.AgeOn(p.BirthDate)))
		field(pdf, tr, "Allergies", orNone(p.Allergies))
		field(pdf, tr, "Medical", orNone(p.Medical))
		if ec := p.EmergencyContact; ec.Name != "" {
			contact := ec.Name + ", " + ec.Phone
			if ec.Relationship != "" {
				contact += " (" + ec.Relationship + ")"
			}
			field(pdf, tr, "Emergency contact", contact)
		}
		pdf.Ln(2)
	}
	pdf.Ln(2)

	section(pdf, tr, "Release")
	text := strings.TrimSpace(ev.WaiverText)
	if text == "" {
		text = defaultText
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(text), "", "J", false)
	pdf.Ln(6)

	section(pdf, tr, "Signature")
	signedBy := reg.SignedBy
	if signedBy == "" {
		signedBy = d.Guardian.FullName()
	}
	signedAt := reg.CreatedAt
	if reg.SignedAt != nil {
		signedAt = *reg.SignedAt
	}
	field(pdf, tr, "Signed electronically by", signedBy)
	field(pdf, tr, "Signed at", signedAt.UTC().Format("2006-01-02 15:04 MST"))
	field(pdf, tr, "Registration", reg.ID.String())
	if reg.SubmittedFrom != "" {
		field(pdf, tr, "Submitted from", reg.SubmittedFrom)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render waiver: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(0, 7, tr(title), "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func field(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(45, 5, tr(label+":"), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(value), "", "L", false)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None reported"
	}
	return s
}
