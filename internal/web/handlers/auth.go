package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when a username is unknown so the response time
// does not reveal which accounts exist.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("face-attendance"), bcrypt.DefaultCost)
	return hash
})

// AuthHandler handles operator authentication endpoints
type AuthHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
	gate           *middleware.AuthGate
	validate       *validator.Validate
	bcryptCost     int
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, sm *middleware.SessionManager, gate *middleware.AuthGate) *AuthHandler {
	return &AuthHandler{
		config:         cfg,
		sessionManager: sm,
		gate:           gate,
		validate:       validator.New(),
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// loginRequest represents a login request
type loginRequest struct {
	username string
	password string
}

func (l *loginRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal login request: %w", err)
	}
	l.username = raw["username"]
	l.password = raw["password"]
	return nil
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// checkCredentials compares against the configured operator account first, then the
// registered ones. A bcrypt comparison always runs so a wrong username costs the same
// as a wrong password.
func (h *AuthHandler) checkCredentials(r *http.Request, username, password string) (bool, error) {
	if h.config.Auth.Enabled() && subtle.ConstantTimeCompare([]byte(username), []byte(h.config.Auth.Username)) == 1 {
		err := bcrypt.CompareHashAndPassword([]byte(h.config.Auth.PasswordHash()), []byte(password))
		return err == nil, nil
	}

	hash := dummyHash()
	var op *middleware.Operator
	if repo := h.gate.Operators(); repo != nil {
		var err error
		op, err = repo.GetOperator(r.Context(), username)
		if err != nil {
			return false, err
		}
		if op != nil {
			hash = []byte(op.PasswordHash)
		}
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	return op != nil && err == nil, nil
}

// Login handles operator login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Required() {
		respondError(w, http.StatusServiceUnavailable, "operator login is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	// Require both username and password
	if req.username == "" || req.password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	ok, err := h.checkCredentials(r, req.username, req.password)
	if err != nil {
		log.Printf("auth: operator lookup: %v", err)
		respondError(w, http.StatusServiceUnavailable, "operator store unavailable")
		return
	}
	if !ok {
		log.Printf("auth: failed login for %q from %s", sanitizeForLog(req.username), r.RemoteAddr)
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid credentials",
		})
		return
	}

	session, err := h.sessionManager.CreateSession(r.Context(), req.username)
	if err != nil {
		log.Printf("auth: create session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	// Set session cookie
	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout handles operator logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(r.Context(), session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	AuthEnabled   bool   `json:"auth_enabled"`
	Username      string `json:"username,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status reports whether the caller holds a valid session. Without any operator
// account every caller counts as authenticated.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Required() {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: true})
		return
	}

	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{AuthEnabled: true})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		AuthEnabled:   true,
		Username:      session.Username,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// registerRequest is the operator sign-up form
type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,printascii"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// OperatorResponse describes a registered operator account
type OperatorResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// Register creates an operator account. The first account can be created by anyone
// while no operator exists; after that only a logged-in operator may add others.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	repo := h.gate.Operators()
	if repo == nil {
		respondError(w, http.StatusServiceUnavailable, "operator registration is not available for this record store")
		return
	}
	if h.gate.Required() && h.sessionManager.GetSessionFromRequest(r) == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := h.validate.Struct(req); err != nil || strings.ContainsRune(req.Username, ' ') {
		respondError(w, http.StatusBadRequest, "username must be 3-64 characters without spaces and password 8-72 characters")
		return
	}
	if h.config.Auth.Enabled() && strings.EqualFold(req.Username, h.config.Auth.Username) {
		respondError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		log.Printf("auth: hash password: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	op, err := repo.CreateOperator(r.Context(), req.Username, string(hash))
	if database.IsUniqueViolation(err) {
		respondError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		log.Printf("auth: create operator: %v", err)
		respondError(w, http.StatusServiceUnavailable, "operator store unavailable")
		return
	}

	h.gate.MarkRegistered()
	log.Printf("auth: registered operator %q", sanitizeForLog(op.Username))
	respondJSON(w, http.StatusCreated, OperatorResponse{
		ID:        op.ID,
		Username:  op.Username,
		CreatedAt: op.CreatedAt.UTC().Format(time.RFC3339),
	})
}
