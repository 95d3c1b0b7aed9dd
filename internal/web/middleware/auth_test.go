package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// memoryRepo is an in-memory SessionRepository.
type memoryRepo struct {
	mu       sync.Mutex
	sessions map[string]StoredSession
	saveErr  error
	getErr   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: make(map[string]StoredSession)}
}

func (m *memoryRepo) Save(_ context.Context, s StoredSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryRepo) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if time.Now().After(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func newTestManager(t *testing.T, repo SessionRepository) *SessionManager {
	t.Helper()
	sm := NewSessionManager("test-secret", repo)
	t.Cleanup(sm.Stop)
	return sm
}

func TestSessionManager_CreateSession(t *testing.T) {
	sm := newTestManager(t, nil)

	session, err := sm.CreateSession(context.Background(), "admin")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if session.ID == "" {
		t.Error("session ID is empty")
	}
	if session.Username != "admin" {
		t.Errorf("Username = %s, want admin", session.Username)
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("session expires in the past")
	}
}

func TestSessionManager_GetSession(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	session, _ := sm.CreateSession(ctx, "admin")

	retrieved := sm.GetSession(ctx, session.ID)
	if retrieved == nil {
		t.Fatal("GetSession() returned nil for existing session")
	}
	if retrieved.Username != "admin" {
		t.Errorf("Username = %s, want admin", retrieved.Username)
	}

	if sm.GetSession(ctx, "nonexistent-id") != nil {
		t.Error("GetSession() should return nil for non-existing session")
	}
}

func TestSessionManager_ExpiredSession(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	session, _ := sm.CreateSession(ctx, "admin")
	sm.now = func() time.Time { return time.Now().Add(sessionDuration + time.Minute) }

	if sm.GetSession(ctx, session.ID) != nil {
		t.Error("expired session should not be returned")
	}
	sm.mu.RLock()
	_, cached := sm.sessions[session.ID]
	sm.mu.RUnlock()
	if cached {
		t.Error("expired session should be evicted")
	}
}

func TestSessionManager_DeleteSession(t *testing.T) {
	repo := newMemoryRepo()
	sm := newTestManager(t, repo)
	ctx := context.Background()

	session, _ := sm.CreateSession(ctx, "admin")
	sm.DeleteSession(ctx, session.ID)

	if sm.GetSession(ctx, session.ID) != nil {
		t.Error("GetSession() should return nil after deletion")
	}
	if s, _ := repo.Get(ctx, session.ID); s != nil {
		t.Error("session should be removed from the repository")
	}
}

func TestSessionManager_RepositoryFallback(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()

	first := newTestManager(t, repo)
	session, err := first.CreateSession(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}

	// A second manager (server restart) only knows the session through the repository.
	second := newTestManager(t, repo)
	restored := second.GetSession(ctx, session.ID)
	if restored == nil {
		t.Fatal("session should be restored from the repository")
	}
	if restored.Username != "admin" {
		t.Errorf("Username = %s, want admin", restored.Username)
	}
}

func TestSessionManager_RepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("save failure fails login", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.saveErr = errors.New("database down")
		sm := newTestManager(t, repo)
		if _, err := sm.CreateSession(ctx, "admin"); err == nil {
			t.Error("expected error when the session cannot be persisted")
		}
	})

	t.Run("lookup failure is treated as no session", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.getErr = errors.New("database down")
		sm := newTestManager(t, repo)
		if sm.GetSession(ctx, "unknown") != nil {
			t.Error("expected nil session")
		}
	})
}

func TestSessionManager_CleanupExpired(t *testing.T) {
	repo := newMemoryRepo()
	sm := newTestManager(t, repo)
	ctx := context.Background()

	session, _ := sm.CreateSession(ctx, "admin")
	repo.mu.Lock()
	stored := repo.sessions[session.ID]
	stored.ExpiresAt = time.Now().Add(-time.Minute)
	repo.sessions[session.ID] = stored
	repo.mu.Unlock()
	sm.now = func() time.Time { return time.Now().Add(sessionDuration + time.Minute) }

	sm.cleanupExpired()

	sm.mu.RLock()
	n := len(sm.sessions)
	sm.mu.RUnlock()
	if n != 0 {
		t.Errorf("expected empty cache, have %d", n)
	}
	if s, _ := repo.Get(ctx, session.ID); s != nil {
		t.Error("expired session should be deleted from the repository")
	}
}

func TestSessionManager_SetAndGetSessionCookie(t *testing.T) {
	sm := newTestManager(t, nil)
	session, _ := sm.CreateSession(context.Background(), "admin")

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	sm.SetSessionCookie(w, r, session)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
			break
		}
	}
	if sessionCookie == nil {
		t.Fatal("Session cookie not found")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(sessionCookie)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil {
		t.Fatal("GetSessionFromRequest() returned nil")
	}
	if retrieved.ID != session.ID {
		t.Errorf("Session ID = %s, want %s", retrieved.ID, session.ID)
	}
}

func TestSessionManager_InvalidCookie(t *testing.T) {
	sm := newTestManager(t, nil)
	session, _ := sm.CreateSession(context.Background(), "admin")

	tests := []struct {
		name  string
		value string
	}{
		{"garbage", "invalid-session.invalid-signature"},
		{"no signature", session.ID},
		{"signed by another secret", session.ID + "." + NewSessionManager("other", nil).signData(session.ID)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.value})
			if sm.GetSessionFromRequest(req) != nil {
				t.Error("GetSessionFromRequest() should return nil for an invalid cookie")
			}
		})
	}
}

func TestSessionManager_BearerAuth(t *testing.T) {
	sm := newTestManager(t, nil)
	session, _ := sm.CreateSession(context.Background(), "admin")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil {
		t.Fatal("GetSessionFromRequest() returned nil for Bearer auth")
	}
	if retrieved.ID != session.ID {
		t.Errorf("Session ID = %s, want %s", retrieved.ID, session.ID)
	}
}

func TestRequireAuth(t *testing.T) {
	sm := newTestManager(t, nil)
	session, _ := sm.CreateSession(context.Background(), "admin")

	handlerCalled := false
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if GetSessionFromContext(r.Context()) == nil {
			t.Error("Session not found in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	protectedHandler := RequireAuth(sm)(testHandler)

	t.Run("valid session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)

		protectedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if !handlerCalled {
			t.Error("Handler was not called")
		}
	})

	t.Run("no session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)

		protectedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if handlerCalled {
			t.Error("Handler should not be called for unauthorized request")
		}
		if !strings.Contains(w.Body.String(), "unauthorized") {
			t.Errorf("unexpected body %q", w.Body.String())
		}
	})
}

func TestGetSessionFromContext(t *testing.T) {
	session := &Session{ID: "test123", Username: "admin"}
	ctx := SetSessionInContext(context.Background(), session)

	retrieved := GetSessionFromContext(ctx)
	if retrieved == nil {
		t.Fatal("GetSessionFromContext() returned nil")
	}
	if retrieved.ID != "test123" {
		t.Errorf("Session ID = %s, want test123", retrieved.ID)
	}

	if GetSessionFromContext(context.Background()) != nil {
		t.Error("GetSessionFromContext() should return nil for empty context")
	}
}

func TestSessionManager_ClearSessionCookie(t *testing.T) {
	sm := newTestManager(t, nil)

	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
			break
		}
	}
	if sessionCookie == nil {
		t.Fatal("Session cookie not found")
	}
	if sessionCookie.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1 (expired)", sessionCookie.MaxAge)
	}
}

func TestSession_MarshalJSON(t *testing.T) {
	session := &Session{
		ID:        "test123",
		Username:  "admin",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	data, err := session.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	jsonStr := string(data)
	if !strings.Contains(jsonStr, `"session_id":"test123"`) {
		t.Errorf("JSON should contain session_id, got %s", jsonStr)
	}
	if !strings.Contains(jsonStr, `"username":"admin"`) {
		t.Errorf("JSON should contain username, got %s", jsonStr)
	}
	if strings.Contains(jsonStr, "created_at") {
		t.Error("JSON should only expose the public session fields")
	}
}
