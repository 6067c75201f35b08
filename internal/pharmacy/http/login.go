package http

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/farmadigital/pharmacy/internal/pharmacy/service"
	"github.com/farmadigital/pharmacy/pkg/httpx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// LoginHandler serves the password + one-time-code login flow.
type LoginHandler struct {
	LoginService *service.LoginService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

type loginResponse struct {
	Status string `json:"status"`

	// Enrollment material, present only when status is enrollment_started.
	EnrollmentURI string `json:"enrollment_uri,omitempty"`
	Secret        string `json:"secret,omitempty"`

	// Session, present only when status is authenticated.
	AccessToken string   `json:"access_token,omitempty"`
	TokenType   string   `json:"token_type,omitempty"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Modules     []string `json:"modules,omitempty"`
}

// HandleLogin handles POST /v1/auth/login.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse login request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.LoginService.Login(ctx, service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
		Origin:   remoteIP(r),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := loginResponse{Status: string(res.Status)}
	switch res.Status {
	case service.StatusEnrollmentStarted:
		out.EnrollmentURI = res.EnrollmentURI
		out.Secret = res.Secret
	case service.StatusAuthenticated:
		out.AccessToken = res.Token
		out.TokenType = "Bearer"
		out.Name = res.Summary.Name
		out.Role = res.Summary.Role
		out.Modules = res.Summary.Modules
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

// remoteIP strips the port from RemoteAddr for the audit trail.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
