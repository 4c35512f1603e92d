package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

func scanCoupon(r rowScanner) (model.CouponInfo, error) {
	var (
		c      model.CouponInfo
		exp    sql.NullInt64
		active int
	)
	if err := r.Scan(&c.Code, &c.Discount, &c.Description, &exp, &active); err != nil {
		return c, err
	}
	c.ExpiresAt = timeFromNull(exp)
	c.IsActive = active != 0
	return c, nil
}

// FindCoupon returns the coupon with the given code, or nil.
func (s *Store) FindCoupon(ctx context.Context, code string) (*model.CouponInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, discount, description, expires_at, is_active FROM coupons WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code)))
	c, err := scanCoupon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan coupon: %w", errx.WrapSQL(err))
	}
	return &c, nil
}

// ActiveCoupons returns coupons that are active and not expired.
func (s *Store) ActiveCoupons(ctx context.Context) ([]model.CouponInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, discount, description, expires_at, is_active FROM coupons
		WHERE is_active = 1 AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY discount DESC, code`, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", errx.WrapSQL(err))
	}
	defer rows.Close()

	var out []model.CouponInfo
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", errx.WrapSQL(err))
		}
		out = append(out, c)
	}
	return out, errx.WrapSQL(rows.Err())
}

// CouponDesk hands out coupons and enforces one coupon per session.
type CouponDesk struct {
	store       *Store
	assignments model.CouponAssignments
	now         func() time.Time
}

func NewCouponDesk(store *Store, assignments model.CouponAssignments) *CouponDesk {
	return &CouponDesk{store: store, assignments: assignments, now: time.Now}
}

// ActiveCoupons implements model.CouponService.
func (d *CouponDesk) ActiveCoupons(ctx context.Context) ([]model.CouponInfo, error) {
	return d.store.ActiveCoupons(ctx)
}

// RequestCoupon implements model.CouponService. A session that already
// holds a valid coupon always gets that coupon back with already_assigned.
// If the held coupon stopped being valid the session may pick a new one.
func (d *CouponDesk) RequestCoupon(ctx context.Context, sessionID, code string) (*model.CouponRequest, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	res := &model.CouponRequest{RequestedCode: code}
	now := d.now()

	held, err := d.assignments.Assigned(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load coupon assignment: %w", err)
	}
	if held != "" {
		cur, err := d.store.FindCoupon(ctx, held)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.Valid(now) {
			res.Outcome = model.CouponAlreadyAssigned
			res.AssignedCode = held
			res.Coupon = cur
			return res, nil
		}
		logx.Info().Str("session_id", sessionID).Str("coupon", held).Msg("assigned coupon no longer valid, releasing")
		if err := d.assignments.Release(ctx, sessionID, held); err != nil {
			return nil, fmt.Errorf("release stale coupon: %w", err)
		}
	}

	coupon, err := d.store.FindCoupon(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon == nil || !coupon.Valid(now) {
		res.Outcome = model.CouponInvalid
		return res, nil
	}

	assigned, ok, err := d.assignments.Assign(ctx, sessionID, coupon.Code)
	if err != nil {
		return nil, fmt.Errorf("assign coupon: %w", err)
	}
	if !ok {
		// a concurrent request won the assignment
		cur, err := d.store.FindCoupon(ctx, assigned)
		if err != nil {
			return nil, err
		}
		res.Outcome = model.CouponAlreadyAssigned
		res.AssignedCode = assigned
		res.Coupon = cur
		return res, nil
	}

	logx.Info().Str("session_id", sessionID).Str("coupon", coupon.Code).Msg("coupon assigned")
	res.Outcome = model.CouponSuccess
	res.AssignedCode = coupon.Code
	res.Coupon = coupon
	return res, nil
}

var _ model.CouponService = (*CouponDesk)(nil)
