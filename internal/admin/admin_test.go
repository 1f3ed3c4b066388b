package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"retreat/internal/audit"
	dErrors "retreat/pkg/domain-errors"
	"retreat/pkg/requestcontext"
)

// =============================================================================
// Admin Service Test Suite
// =============================================================================
// Justification for unit tests: staff login guards every refund and delete.
// Tests verify constructor invariants, credential checks, the lockout and the
// audit trail of logins.

const testPassword = "correct horse battery"

type AdminSuite struct {
	suite.Suite
	ctx     context.Context
	users   *MemoryUserStore
	tokens  *TokenIssuer
	limiter *MemoryLimiter
	sink    *audit.MemorySink
	service *Service
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}

func (s *AdminSuite) SetupTest() {
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", "curl/8", "Other")
	s.users = NewMemoryUserStore()
	s.tokens = NewTokenIssuer("test-secret-test-secret-test-secret", "retreat", "retreat-admin", time.Hour)
	s.limiter = NewMemoryLimiter(3, time.Minute)
	s.sink = audit.NewMemorySink()

	var err error
	s.service, err = New(s.users, s.tokens,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(audit.NewPublisher(s.sink)),
		WithLimiter(s.limiter),
	)
	s.Require().NoError(err)
	_, err = s.service.CreateUser(s.ctx, "Staff@Example.org", testPassword, "", "")
	s.Require().NoError(err)
}

func (s *AdminSuite) TestNew() {
	s.Run("nil user store returns error", func() {
		_, err := New(nil, s.tokens)
		s.ErrorContains(err, "admin user store is required")
	})
	s.Run("nil token issuer returns error", func() {
		_, err := New(s.users, nil)
		s.ErrorContains(err, "token issuer is required")
	})
}

func (s *AdminSuite) TestCreateUser() {
	u, err := s.users.FindByEmail(s.ctx, "staff@example.org")
	s.Require().NoError(err)
	s.Equal("Staff", u.FirstName)
	s.NotEqual(testPassword, u.PasswordHash)

	_, err = s.service.CreateUser(s.ctx, "staff@example.org", testPassword, "", "")
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	_, err = s.service.CreateUser(s.ctx, "new@example.org", "short", "", "")
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	_, err = s.service.CreateUser(s.ctx, "not-an-email", testPassword, "", "")
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *AdminSuite) TestEnsureUser() {
	created, err := s.service.EnsureUser(s.ctx, "staff@example.org", testPassword)
	s.Require().NoError(err)
	s.False(created)

	created, err = s.service.EnsureUser(s.ctx, "boot@example.org", testPassword)
	s.Require().NoError(err)
	s.True(created)
}

func (s *AdminSuite) TestLogin() {
	s.Run("valid credentials issue a token", func() {
		res, err := s.service.Login(s.ctx, " STAFF@example.org ", testPassword)
		s.Require().NoError(err)
		s.Equal("Bearer", res.TokenType)
		s.Equal("staff@example.org", res.Email)

		email, err := s.service.ValidateToken(res.Token)
		s.Require().NoError(err)
		s.Equal("staff@example.org", email)

		u, err := s.users.FindByEmail(s.ctx, "staff@example.org")
		s.Require().NoError(err)
		s.NotNil(u.LastLoginAt)
		s.Contains(s.sink.Actions(), audit.ActionAdminLogin)
	})

	s.Run("wrong password and unknown email look the same", func() {
		_, wrongPassword := s.service.Login(s.ctx, "staff@example.org", "nope nope nope")
		_, unknown := s.service.Login(s.ctx, "ghost@example.org", testPassword)
		s.True(dErrors.Is(wrongPassword, dErrors.CodeUnauthorized))
		s.True(dErrors.Is(unknown, dErrors.CodeUnauthorized))
		s.Equal(dErrors.MessageOf(wrongPassword), dErrors.MessageOf(unknown))
	})

	s.Run("missing fields", func() {
		_, err := s.service.Login(s.ctx, "", "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *AdminSuite) TestLogin_LocksAfterRepeatedFailures() {
	for i := 0; i < 3; i++ {
		_, err := s.service.Login(s.ctx, "staff@example.org", "wrong password!")
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	}

	_, err := s.service.Login(s.ctx, "staff@example.org", testPassword)
	s.True(dErrors.Is(err, dErrors.CodeTooManyRequests), "correct password is refused while locked")

	other := requestcontext.WithClientMetadata(context.Background(), "198.51.100.1", "", "")
	_, err = s.service.Login(other, "staff@example.org", testPassword)
	s.NoError(err, "lockout is per email and address")

	failed := 0
	for _, ev := range s.sink.Events() {
		if ev.Action == audit.ActionAdminLoginFailed {
			failed++
		}
	}
	s.Equal(4, failed)
}

func (s *AdminSuite) TestHandleLogin() {
	h := NewHandler(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"success", `{"email":"staff@example.org","password":"` + testPassword + `"}`, http.StatusOK, `"access_token"`},
		{"bad password", `{"email":"staff@example.org","password":"wrong password!"}`, http.StatusUnauthorized, `"unauthorized"`},
		{"unknown field", `{"email":"staff@example.org","pass":"x"}`, http.StatusBadRequest, `"bad_request"`},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			h.HandleLogin(rr, req)
			s.Equal(tc.wantStatus, rr.Code)
			s.Contains(rr.Body.String(), tc.wantBody)
		})
	}
}
