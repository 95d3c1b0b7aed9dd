package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// countingOperators is an OperatorRepository that only answers CountOperators.
type countingOperators struct {
	n   int
	err error
}

func (c *countingOperators) CreateOperator(context.Context, string, string) (*Operator, error) {
	return nil, errors.New("not implemented")
}

func (c *countingOperators) GetOperator(context.Context, string) (*Operator, error) {
	return nil, nil
}

func (c *countingOperators) CountOperators(context.Context) (int, error) {
	return c.n, c.err
}

func TestAuthGate_Required(t *testing.T) {
	tests := []struct {
		name       string
		configured bool
		operators  OperatorRepository
		want       bool
	}{
		{"nothing configured", false, nil, false},
		{"environment account", true, nil, true},
		{"empty operator table", false, &countingOperators{n: 0}, false},
		{"registered operator", false, &countingOperators{n: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewAuthGate(tt.configured, tt.operators)
			if err := gate.Load(context.Background()); err != nil {
				t.Fatal(err)
			}
			if got := gate.Required(); got != tt.want {
				t.Errorf("Required() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthGate_LoadError(t *testing.T) {
	gate := NewAuthGate(false, &countingOperators{err: errors.New("database down")})
	if err := gate.Load(context.Background()); err == nil {
		t.Error("expected error")
	}
	if gate.Required() {
		t.Error("a failed count must not lock the API")
	}

	gate.MarkRegistered()
	if !gate.Required() {
		t.Error("MarkRegistered() should require a session")
	}
}

func TestRequireAuthWhenGated(t *testing.T) {
	sm := newTestManager(t, nil)
	gate := NewAuthGate(false, nil)
	handler := RequireAuthWhenGated(sm, gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(sessionID string) int {
		req := httptest.NewRequest("GET", "/api/v1/identities", nil)
		if sessionID != "" {
			req.Header.Set("Authorization", "Bearer "+sessionID)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder.Code
	}

	if code := call(""); code != http.StatusNoContent {
		t.Errorf("open gate: got %d, want 204", code)
	}

	gate.MarkRegistered()
	if code := call(""); code != http.StatusUnauthorized {
		t.Errorf("closed gate without session: got %d, want 401", code)
	}

	session, err := sm.CreateSession(context.Background(), "siti")
	if err != nil {
		t.Fatal(err)
	}
	if code := call(session.ID); code != http.StatusNoContent {
		t.Errorf("closed gate with session: got %d, want 204", code)
	}
}
