package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Operator is a registered operator account.
type Operator struct {
	ID           int64
	Username     string
	PasswordHash string // bcrypt
	CreatedAt    time.Time
}

// OperatorRepository stores operator accounts registered through the API.
type OperatorRepository interface {
	// CreateOperator returns a database.UniqueViolationError for a taken username.
	CreateOperator(ctx context.Context, username, passwordHash string) (*Operator, error)
	// GetOperator returns nil when the username is unknown
	GetOperator(ctx context.Context, username string) (*Operator, error)
	CountOperators(ctx context.Context) (int, error)
}

// AuthGate decides whether the API requires an operator session. Login becomes
// mandatory as soon as one operator account exists, from the environment or registered.
type AuthGate struct {
	configured bool
	operators  OperatorRepository
	registered atomic.Bool
}

// NewAuthGate creates a gate. configured reports an operator account from the environment;
// operators may be nil when the record store cannot hold accounts.
func NewAuthGate(configured bool, operators OperatorRepository) *AuthGate {
	return &AuthGate{configured: configured, operators: operators}
}

// Load checks the repository for registered accounts.
func (g *AuthGate) Load(ctx context.Context) error {
	if g.operators == nil {
		return nil
	}
	n, err := g.operators.CountOperators(ctx)
	if err != nil {
		return fmt.Errorf("count operators: %w", err)
	}
	if n > 0 {
		g.registered.Store(true)
	}
	return nil
}

// Required reports whether API calls need a session.
func (g *AuthGate) Required() bool {
	return g.configured || g.registered.Load()
}

// MarkRegistered records that an operator account now exists.
func (g *AuthGate) MarkRegistered() {
	g.registered.Store(true)
}

// Operators returns the account repository, nil if registration is unavailable.
func (g *AuthGate) Operators() OperatorRepository {
	return g.operators
}

// RequireAuthWhenGated applies RequireAuth only while the gate requires a session.
func RequireAuthWhenGated(sm *SessionManager, gate *AuthGate) func(http.Handler) http.Handler {
	requireAuth := RequireAuth(sm)
	return func(next http.Handler) http.Handler {
		guarded := requireAuth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Required() {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}
