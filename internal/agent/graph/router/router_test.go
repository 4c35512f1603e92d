package router

import (
	"testing"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

func TestRoute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		intent model.Intent
		count  int
		want   Decision
	}{
		{"high frustration preempts product", model.IntentProductAvailability, 2, Decision{Next: model.StepFrustration}},
		{"high frustration preempts approval", model.IntentManagerApproval, 3, Decision{Next: model.StepFrustration}},
		{"approval", model.IntentManagerApproval, 1, Decision{Next: model.StepManagerApproval}},
		{"order needs entity", model.IntentOrderStatus, 0, Decision{Next: model.StepEntityExtraction}},
		{"product needs entity", model.IntentProductAvailability, 1, Decision{Next: model.StepEntityExtraction}},
		{"coupon needs entity", model.IntentCouponQuery, 0, Decision{Next: model.StepEntityExtraction}},
		{"knowledge goes to action", model.IntentKnowledgeBaseQuery, 1, Decision{Next: model.StepAction}},
		{"calm greeting", model.IntentGreeting, 0, Decision{Next: model.StepResponseSynthesis}},
		{"greeting after frustration", model.IntentGreeting, 1, Decision{Next: model.StepFrustration}},
		{"other calm", model.IntentOther, 0, Decision{Next: model.StepAction}},
		{"other mild", model.IntentOther, 1, Decision{Next: model.StepAction, MildFrustration: true}},
		{"unresolved refund", model.IntentRefundRequest, 0, Decision{Next: model.StepAction}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Route(tc.intent, tc.count); got != tc.want {
				t.Fatalf("Route(%s, %d) = %+v, want %+v", tc.intent, tc.count, got, tc.want)
			}
		})
	}
}

func TestRouteHighFrustrationForEveryIntent(t *testing.T) {
	t.Parallel()

	for _, in := range model.Intents {
		if got := Route(in, HighFrustration); got.Next != model.StepFrustration {
			t.Fatalf("intent %s with high frustration routed to %s", in, got.Next)
		}
	}
}

func TestAfter(t *testing.T) {
	t.Parallel()

	if After(model.StepEntityExtraction) != model.StepAction {
		t.Fatalf("extraction must lead to action")
	}
	for _, s := range []model.Step{model.StepAction, model.StepFrustration, model.StepManagerApproval} {
		if After(s) != model.StepResponseSynthesis {
			t.Fatalf("%s must lead to synthesis", s)
		}
	}
	if After(model.StepResponseSynthesis) != "" {
		t.Fatalf("synthesis is terminal")
	}
}
