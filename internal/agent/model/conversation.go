package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Session is the persisted part of a conversation.
type Session struct {
	ID               string
	Messages         []*schema.Message
	FrustrationCount int
	// Version is bumped on every successful save and used for optimistic locking.
	Version int64
}

// SessionStore loads and saves whole sessions. Save must fail with
// errx.ErrSessionConflict when the stored version differs from s.Version.
// A missing session loads as an empty one with version 0.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// CouponAssignments tracks which coupon each session has received.
type CouponAssignments interface {
	// Assign records code for the session unless one is already recorded.
	// It returns the code now assigned and whether this call assigned it.
	Assign(ctx context.Context, sessionID, code string) (assigned string, ok bool, err error)
	// Assigned returns the recorded code, or "" when none.
	Assigned(ctx context.Context, sessionID string) (string, error)
	// Release drops the assignment only if it still equals code.
	Release(ctx context.Context, sessionID, code string) error
}
