// Package handler exposes the registration workflow over HTTP: the public
// form endpoints and the staff portal under /admin.
package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"retreat/internal/event"
	"retreat/internal/registration/models"
	"retreat/internal/registration/service"
	id "retreat/pkg/domain"
	dErrors "retreat/pkg/domain-errors"
	"retreat/pkg/platform/httputil"
	"retreat/pkg/requestcontext"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterPublic mounts the registration form endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/api/event", h.handleEvent)
	r.Post("/api/quote", h.handleQuote)
	r.Post("/api/payment-intents", h.handleCreatePaymentIntent)
	r.Post("/api/registrations", h.handleConfirm)
}

// RegisterAdmin mounts the staff endpoints. The caller applies authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/registrations", h.handleList)
	r.Get("/registrations/summary", h.handleSummary)
	r.Get("/registrations/export.csv", h.handleExport)
	r.Get("/registrations/{id}", h.handleGet)
	r.Get("/registrations/{id}/waiver.pdf", h.handleWaiver)
	r.Post("/registrations/{id}/refund", h.handleRefund)
	r.Post("/registrations/{id}/resend", h.handleResend)
	r.Delete("/registrations/{id}", h.handleDelete)
}

type EventResponse struct {
	event.Event
	Open             bool  `json:"open"`
	CountdownSeconds int64 `json:"countdown_seconds"`
	UnitPriceCents   int64 `json:"unit_price_cents"`
	EarlyBird        bool  `json:"early_bird"`
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	ev := h.service.Event()
	now := requestcontext.Now(r.Context())
	unit, early := ev.UnitPrice(now)
	httputil.WriteJSON(w, http.StatusOK, EventResponse{
		Event:            ev,
		Open:             ev.IsOpen(now),
		CountdownSeconds: int64(ev.Countdown(now) / time.Second),
		UnitPriceCents:   unit,
		EarlyBird:        early,
	})
}

type QuoteRequest struct {
	Participants int `json:"participants"`
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	quote, err := h.service.Quote(r.Context(), req.Participants)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quote)
}

func (h *Handler) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.CreatePaymentIntent(r.Context(), &req)
	if err != nil {
		h.logFailure(r, "create payment intent failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

type ConfirmRequest struct {
	PaymentIntentID string                      `json:"payment_intent_id"`
	Registration    *models.RegistrationRequest `json:"registration"`
}

type ConfirmResponse struct {
	RegistrationID id.RegistrationID `json:"registration_id"`
	Status         models.Status     `json:"status"`
	AmountCents    int64             `json:"amount_cents"`
	Currency       string            `json:"currency"`
	Participants   []string          `json:"participants"`
	WaiverAttached bool              `json:"waiver_attached"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.ConfirmRegistration(r.Context(), req.PaymentIntentID, req.Registration)
	if err != nil {
		h.logFailure(r, "confirm registration failed", err, "payment_intent_id", req.PaymentIntentID)
		httputil.WriteError(w, err)
		return
	}
	reg := res.Details.Registration
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, ConfirmResponse{
		RegistrationID: reg.ID,
		Status:         reg.Status,
		AmountCents:    reg.AmountCents,
		Currency:       reg.Currency,
		Participants:   reg.ParticipantNames,
		WaiverAttached: reg.WaiverID != "",
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListRegistrations(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summarize(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

// handleExport buffers the CSV so a failure halfway still produces a JSON
// error instead of a truncated file.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var buf bytes.Buffer
	if _, err := h.service.ExportCSV(r.Context(), filter, &buf, requestcontext.AdminEmail(r.Context())); err != nil {
		h.logFailure(r, "export failed", err)
		httputil.WriteError(w, err)
		return
	}
	filename := fmt.Sprintf("%s-registrations-%s.csv", h.service.Event().Slug, requestcontext.Now(r.Context()).UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	details, err := h.service.GetRegistration(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) handleWaiver(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.GetWaiver(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+doc.Filename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	reg, err := h.service.RefundRegistration(r.Context(), registrationID, requestcontext.AdminEmail(r.Context()))
	if err != nil {
		h.logFailure(r, "refund failed", err, "registration_id", registrationID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	if err := h.service.ResendConfirmation(r.Context(), registrationID, requestcontext.AdminEmail(r.Context())); err != nil {
		h.logFailure(r, "resend failed", err, "registration_id", registrationID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	force, err := parseBool(r.URL.Query().Get("force"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.DeleteRegistration(r.Context(), registrationID, force, requestcontext.AdminEmail(r.Context()))
	if err != nil {
		h.logFailure(r, "delete failed", err, "registration_id", registrationID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) registrationID(w http.ResponseWriter, r *http.Request) (id.RegistrationID, bool) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registration id"))
		return id.RegistrationID{}, false
	}
	return registrationID, true
}

// logFailure logs server-side failures; client errors are not logged.
func (h *Handler) logFailure(r *http.Request, msg string, err error, attrs ...any) {
	code := dErrors.CodeOf(err)
	if dErrors.ToHTTPStatus(code) < http.StatusInternalServerError {
		return
	}
	args := append([]any{"error", err, "code", string(code), "request_id", requestcontext.RequestID(r.Context())}, attrs...)
	h.logger.ErrorContext(r.Context(), msg, args...)
}

func parseFilter(r *http.Request) (models.Filter, error) {
	q := r.URL.Query()
	filter := models.Filter{Query: q.Get("q")}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	var err error
	if filter.Limit, err = parseInt(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseInt(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, field+" must be a non-negative integer")
	}
	return n, nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.New(dErrors.CodeBadRequest, "force must be true or false")
	}
	return b, nil
}
