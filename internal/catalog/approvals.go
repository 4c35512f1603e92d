package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
)

// RecordApproval implements model.ApprovalRecorder.
func (s *Store) RecordApproval(ctx context.Context, req *model.ApprovalRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_requests (session_id, request_type, reason, order_id, product_name, urgency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.SessionID, req.RequestType, req.Reason, req.OrderID, req.ProductName, req.Urgency, req.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert approval request: %w", errx.WrapSQL(err))
	}
	if id, err := res.LastInsertId(); err == nil {
		req.ID = id
	}
	return nil
}

// PendingApprovals lists open approval requests for a session, oldest first.
func (s *Store) PendingApprovals(ctx context.Context, sessionID string) ([]model.ApprovalRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, request_type, reason, COALESCE(order_id, ''), COALESCE(product_name, ''), urgency, created_at
		FROM approval_requests WHERE session_id = ? AND status = 'pending'
		ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list approval requests: %w", errx.WrapSQL(err))
	}
	defer rows.Close()

	var out []model.ApprovalRequest
	for rows.Next() {
		var (
			r       model.ApprovalRequest
			created int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.RequestType, &r.Reason, &r.OrderID, &r.ProductName, &r.Urgency, &created); err != nil {
			return nil, fmt.Errorf("scan approval request: %w", errx.WrapSQL(err))
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, r)
	}
	return out, errx.WrapSQL(rows.Err())
}

var (
	_ model.ApprovalRecorder = (*Store)(nil)
	_ model.OrderLookup      = (*Store)(nil)
	_ model.ProductCatalog   = (*Store)(nil)
)
