package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
)

// MemorySessionStore is an in-process SessionStore used for local runs and tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]model.Session)}
}

func (m *MemorySessionStore) Load(_ context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, errx.ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return &model.Session{ID: sessionID, Messages: []*schema.Message{}}, nil
	}
	s.Messages = append([]*schema.Message(nil), s.Messages...)
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *model.Session) error {
	if s == nil || s.ID == "" {
		return errx.ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur := m.sessions[s.ID]; cur.Version != s.Version {
		return errx.ErrSessionConflict
	}
	s.Version++
	stored := *s
	stored.Messages = append([]*schema.Message(nil), s.Messages...)
	m.sessions[s.ID] = stored
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// MemoryCouponAssignments is the in-process CouponAssignments.
type MemoryCouponAssignments struct {
	mu       sync.Mutex
	assigned map[string]string
}

func NewMemoryCouponAssignments() *MemoryCouponAssignments {
	return &MemoryCouponAssignments{assigned: make(map[string]string)}
}

func (m *MemoryCouponAssignments) Assign(_ context.Context, sessionID, code string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.assigned[sessionID]; ok {
		return cur, false, nil
	}
	m.assigned[sessionID] = code
	return code, true, nil
}

func (m *MemoryCouponAssignments) Assigned(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assigned[sessionID], nil
}

func (m *MemoryCouponAssignments) Release(_ context.Context, sessionID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assigned[sessionID] == code {
		delete(m.assigned, sessionID)
	}
	return nil
}

var (
	_ model.SessionStore      = (*MemorySessionStore)(nil)
	_ model.CouponAssignments = (*MemoryCouponAssignments)(nil)
)
