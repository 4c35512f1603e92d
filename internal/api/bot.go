package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/replies"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

type MessageRequest struct {
	Message   string `json:"message"`
	Language  string `json:"language"`
	SessionID string `json:"session_id,omitempty"`
}

type CouponRequest struct {
	CouponCode string `json:"coupon_code"`
	Language   string `json:"language"`
}

type CouponResponse struct {
	Success         bool              `json:"success"`
	Message         string            `json:"message"`
	AlreadyAssigned bool              `json:"already_assigned"`
	AssignedCode    string            `json:"assigned_code,omitempty"`
	Coupon          *model.CouponInfo `json:"coupon,omitempty"`
}

// Message runs one conversation turn.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !decode(w, r, &req) {
		return
	}
	id := h.sessionID(w, r, req.SessionID)

	out, err := h.deps.Turns.ProcessTurn(r.Context(), model.TurnInput{
		SessionID: id,
		Message:   req.Message,
		Language:  req.Language,
	})
	if err != nil {
		logx.Session(id).Error().Err(err).Msg("turn failed")
		Error(w, errx.StatusOf(err), errx.MessageOf(err))
		return
	}
	JSON(w, http.StatusOK, out)
}

// RequestCoupon assigns a coupon to the session directly, outside a conversation turn.
func (h *Handler) RequestCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if !decode(w, r, &req) {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.CouponCode))
	if code == "" {
		Error(w, http.StatusBadRequest, "coupon_code is required")
		return
	}
	id := h.sessionID(w, r, "")

	res, err := h.deps.Coupons.RequestCoupon(r.Context(), id, code)
	if err != nil {
		logx.Session(id).Error().Err(err).Str("coupon", code).Msg("coupon request failed")
		Error(w, errx.StatusOf(err), errx.MessageOf(err))
		return
	}

	JSON(w, http.StatusOK, CouponResponse{
		Success:         res.Outcome == model.CouponSuccess,
		Message:         replies.Coupon(req.Language, res),
		AlreadyAssigned: res.Outcome == model.CouponAlreadyAssigned,
		AssignedCode:    res.AssignedCode,
		Coupon:          res.Coupon,
	})
}

// EndSession clears the conversation bound to the session cookie and issues a
// fresh session id. The old id keeps its coupon assignment.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
		if err := h.deps.Turns.EndSession(r.Context(), c.Value); err != nil {
			Error(w, errx.StatusOf(err), errx.MessageOf(err))
			return
		}
	}
	h.setSessionCookie(w, uuid.NewString())
	w.WriteHeader(http.StatusNoContent)
}
