package mock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// MockOperatorStore is an in-memory middleware.OperatorRepository.
// Usernames are unique case-insensitively, like the SQL schemas.
type MockOperatorStore struct {
	mu        sync.Mutex
	operators map[string]middleware.Operator
	nextID    int64

	// Error injection
	CreateError error
	GetError    error
	CountError  error
}

// NewMockOperatorStore creates an empty operator store
func NewMockOperatorStore() *MockOperatorStore {
	return &MockOperatorStore{operators: make(map[string]middleware.Operator)}
}

// CreateOperator stores a new account.
func (m *MockOperatorStore) CreateOperator(_ context.Context, username, passwordHash string) (*middleware.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	key := strings.ToLower(username)
	if _, taken := m.operators[key]; taken {
		return nil, &database.UniqueViolationError{
			Constraint: "operators_username_key",
			Err:        errors.New("duplicate username"),
		}
	}
	m.nextID++
	op := middleware.Operator{ID: m.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	m.operators[key] = op
	return &op, nil
}

// GetOperator returns nil for an unknown username.
func (m *MockOperatorStore) GetOperator(_ context.Context, username string) (*middleware.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	op, ok := m.operators[strings.ToLower(username)]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

// CountOperators returns the number of accounts.
func (m *MockOperatorStore) CountOperators(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountError != nil {
		return 0, m.CountError
	}
	return len(m.operators), nil
}

var _ middleware.OperatorRepository = (*MockOperatorStore)(nil)
