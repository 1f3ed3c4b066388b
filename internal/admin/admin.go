// Package admin authenticates retreat staff: bcrypt-hashed accounts, a login
// lockout and short-lived HS256 bearer tokens.
package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"retreat/internal/audit"
	"retreat/pkg/attrs"
	dErrors "retreat/pkg/domain-errors"
	"retreat/pkg/email"
	"retreat/pkg/platform/sentinel"
	"retreat/pkg/requestcontext"
)

const minPasswordLength = 12

// dummyHash is compared against when the email is unknown so a miss costs
// the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("retreat-dummy-password"), bcrypt.DefaultCost)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// UserStore persists staff accounts. Email is unique and stored lower-cased.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// Limiter tracks failed logins per key and reports when a key is locked.
type Limiter interface {
	Locked(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	users          UserStore
	tokens         *TokenIssuer
	limiter        Limiter
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithLimiter replaces the default in-memory login lockout.
func WithLimiter(limiter Limiter) Option {
	return func(s *Service) {
		s.limiter = limiter
	}
}

func New(users UserStore, tokens *TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("admin user store is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	s := &Service{
		users:   users,
		tokens:  tokens,
		limiter: NewMemoryLimiter(DefaultMaxAttempts, DefaultLockout),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoginResult is returned to the admin portal.
type LoginResult struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
}

// Login checks the password and issues a bearer token. Unknown email and
// wrong password produce the same error.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*LoginResult, error) {
	emailAddr = email.Normalize(emailAddr)
	if emailAddr == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}
	key := lockoutKey(emailAddr, requestcontext.ClientIP(ctx))

	locked, err := s.limiter.Locked(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check login lockout")
	}
	if locked {
		s.logAudit(ctx, audit.ActionAdminLoginFailed, "actor", emailAddr, "reason", "locked")
		return nil, dErrors.New(dErrors.CodeTooManyRequests, "too many failed attempts, try again later")
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	hash := dummyHash
	if err == nil {
		hash = []byte(user.PasswordHash)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin user")
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil || user == nil {
		if failErr := s.limiter.Fail(ctx, key); failErr != nil {
			s.logger.ErrorContext(ctx, "failed to record login failure", "error", failErr)
		}
		s.logAudit(ctx, audit.ActionAdminLoginFailed, "actor", emailAddr, "reason", "invalid_credentials")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	if err := s.limiter.Clear(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to clear login failures", "error", err)
	}
	token, expiresAt, err := s.tokens.Issue(user.Email, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	if err := s.users.RecordLogin(ctx, user.ID, requestcontext.Now(ctx).UTC()); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login", "error", err)
	}
	s.logAudit(ctx, audit.ActionAdminLogin, "actor", user.Email)
	return &LoginResult{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt, Email: user.Email}, nil
}

// ValidateToken satisfies the admin middleware.
func (s *Service) ValidateToken(token string) (string, error) {
	return s.tokens.ValidateToken(token)
}

// CreateUser hashes the password and stores a new staff account. Names are
// derived from the email when not given.
func (s *Service) CreateUser(ctx context.Context, emailAddr, password, firstName, lastName string) (*User, error) {
	emailAddr = email.Normalize(emailAddr)
	if !email.IsValid(emailAddr) {
		return nil, dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if len(password) < minPasswordLength {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 12 characters")
	}
	if strings.TrimSpace(firstName) == "" && strings.TrimSpace(lastName) == "" {
		firstName, lastName = email.DeriveNameFromEmail(emailAddr)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u := &User{
		ID:           uuid.New(),
		Email:        emailAddr,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: string(hash),
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "admin user already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin user")
	}
	s.logger.InfoContext(ctx, "admin user created", "email", u.Email)
	return u, nil
}

// EnsureUser creates the bootstrap account unless it already exists.
func (s *Service) EnsureUser(ctx context.Context, emailAddr, password string) (created bool, err error) {
	_, err = s.users.FindByEmail(ctx, email.Normalize(emailAddr))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin user")
	}
	if _, err := s.CreateUser(ctx, emailAddr, password, "", ""); err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) logAudit(ctx context.Context, action string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", action, "log_type", "audit")
	s.logger.InfoContext(ctx, action, args...)
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:    action,
		Actor:     attrs.ExtractString(attributes, "actor"),
		RequestID: attrs.ExtractString(attributes, "request_id"),
		Details:   attrs.Details(attributes, "actor", "request_id"),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit event", "action", action, "error", err)
	}
}

func lockoutKey(emailAddr, ip string) string {
	return emailAddr + "|" + ip
}
