package admin

import (
	"log/slog"
	"net/http"

	"retreat/pkg/platform/httputil"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Handler serves the unauthenticated staff login endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleLogin exchanges email and password for a bearer token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
