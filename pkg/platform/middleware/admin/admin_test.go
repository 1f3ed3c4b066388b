package admin

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"retreat/pkg/requestcontext"
)

type stubValidator map[string]string

func (s stubValidator) ValidateToken(token string) (string, error) {
	if email, ok := s[token]; ok {
		return email, nil
	}
	return "", errors.New("bad token")
}

func TestRequireAdmin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var actor string
	h := RequireAdmin(stubValidator{"good": "staff@example.org"}, logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = requestcontext.AdminEmail(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid token", "Bearer good", http.StatusNoContent, "staff@example.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor = ""
			req := httptest.NewRequest(http.MethodGet, "/admin/registrations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantActor, actor)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rr.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}
