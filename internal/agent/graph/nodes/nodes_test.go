package nodes

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/replies"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/repo"
	"github.com/Chative-core-poc-v1/supportbot/internal/catalog"
	"github.com/Chative-core-poc-v1/supportbot/internal/knowledge"
)

const (
	kindClassify = "classify"
	kindExtract  = "extract"
	kindRefund   = "refund"
	kindEmpathy  = "empathy"
	kindResponse = "response"
)

func promptKind(msgs []*schema.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	sys := msgs[0].Content
	switch {
	case strings.HasPrefix(sys, "You are the intent classifier"):
		return kindClassify
	case strings.HasPrefix(sys, "You extract identifiers"):
		return kindExtract
	case strings.HasPrefix(sys, "You review refund requests"):
		return kindRefund
	case strings.Contains(sys, "The customer is very frustrated"), strings.Contains(sys, "The customer is becoming frustrated"):
		return kindEmpathy
	}
	return kindResponse
}

// scriptedModel answers each prompt kind with a fixed reply or error.
type scriptedModel struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   map[string]int
}

func newScriptedModel(replies map[string]string) *scriptedModel {
	return &scriptedModel{replies: replies, errs: map[string]error{}, calls: map[string]int{}}
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	kind := promptKind(input)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[kind]++
	if err := m.errs[kind]; err != nil {
		return nil, err
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: m.replies[kind],
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		},
	}, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedModel) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

func (m *scriptedModel) fail(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind] = err
}

type failingOrders struct{}

func (failingOrders) FindOrder(context.Context, string) (*model.OrderInfo, error) {
	return nil, errors.New("database is locked")
}

type failingApprovals struct{}

func (failingApprovals) RecordApproval(context.Context, *model.ApprovalRequest) error {
	return errors.New("disk full")
}

type fixture struct {
	h     *Handlers
	cm    *scriptedModel
	store *catalog.Store
}

func newFixture(t *testing.T, replies map[string]string, mutate ...func(*tools.Services, *Config)) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	sd, err := catalog.DefaultSeed()
	if err != nil {
		t.Fatalf("seed data: %v", err)
	}
	if err := store.Seed(ctx, sd); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := tools.Services{
		Orders:    store,
		Products:  store,
		Coupons:   catalog.NewCouponDesk(store, repo.NewMemoryCouponAssignments()),
		Knowledge: knowledge.NewRetriever(store, nil, model.KnowledgeConfig{TopK: 2}),
	}
	cm := newScriptedModel(replies)
	cfg := Config{
		ChatModels: &ChatModels{
			NLU:               cm,
			Response:          cm,
			NLUModelName:      "gemini-2.5-flash-lite",
			ResponseModelName: "gemini-2.5-flash",
		},
		Approvals:    store,
		NLUConfig:    model.NLUModelConfig{FrustrationConfidence: 0.6},
		PromptConfig: model.ResponsePromptConfig{BusinessName: "ShopAssist", BusinessType: "online store"},
	}
	for _, fn := range mutate {
		fn(&svc, &cfg)
	}

	reg, err := tools.NewRegistry(svc)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cfg.Tools = reg
	h, err := NewHandlers(cfg)
	if err != nil {
		t.Fatalf("handlers: %v", err)
	}
	return &fixture{h: h, cm: cm, store: store}
}

func newState(msg string, frustration int, history ...*schema.Message) *model.ConversationState {
	sess := &model.Session{ID: "s-1", FrustrationCount: frustration, Messages: history}
	return model.NewConversationState(sess, model.TurnInput{SessionID: "s-1", Message: msg, Language: "en"})
}

func TestNewHandlersValidates(t *testing.T) {
	t.Parallel()
	if _, err := NewHandlers(Config{}); err == nil {
		t.Fatal("expected error without chat models")
	}
	cm := newScriptedModel(nil)
	if _, err := NewHandlers(Config{ChatModels: &ChatModels{NLU: cm, Response: cm}}); err == nil {
		t.Fatal("expected error without tools")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reply      string
		fail       bool
		start      int
		wantIntent model.Intent
		wantCount  int
		wantNext   model.Step
		wantMild   bool
		wantBumped bool
	}{
		{
			name:       "order status",
			reply:      "(intent<||>order_status<||>0.95<||>1)##(sentiment<||>neutral<||>0.9)<|COMPLETE|>",
			wantIntent: model.IntentOrderStatus,
			wantNext:   model.StepEntityExtraction,
		},
		{
			name:       "unknown label becomes knowledge query",
			reply:      "(intent<||>weather<||>0.8)<|COMPLETE|>",
			wantIntent: model.IntentKnowledgeBaseQuery,
			wantNext:   model.StepAction,
		},
		{
			name:       "other bumps and marks mild",
			reply:      "(intent<||>other<||>0.7)<|COMPLETE|>",
			wantIntent: model.IntentOther,
			wantCount:  1,
			wantNext:   model.StepAction,
			wantMild:   true,
			wantBumped: true,
		},
		{
			name:       "frustrated greeting goes to frustration",
			reply:      "(intent<||>greeting<||>0.9)##(sentiment<||>negative<||>0.8)<|COMPLETE|>",
			wantIntent: model.IntentGreeting,
			wantCount:  1,
			wantNext:   model.StepFrustration,
			wantBumped: true,
		},
		{
			name:       "low confidence negative sentiment is ignored",
			reply:      "(intent<||>greeting<||>0.9)##(sentiment<||>negative<||>0.3)<|COMPLETE|>",
			wantIntent: model.IntentGreeting,
			wantNext:   model.StepResponseSynthesis,
		},
		{
			name:       "second frustration preempts",
			reply:      "(intent<||>coupon_query<||>0.9)##(frustration<||>1<||>0.9)<|COMPLETE|>",
			start:      1,
			wantIntent: model.IntentCouponQuery,
			wantCount:  2,
			wantNext:   model.StepFrustration,
			wantBumped: true,
		},
		{
			name:       "model failure degrades to other",
			fail:       true,
			wantIntent: model.IntentOther,
			wantCount:  1,
			wantNext:   model.StepAction,
			wantMild:   true,
			wantBumped: true,
		},
		{
			name:       "reply without intent degrades to other",
			reply:      "I think the user wants their order",
			wantIntent: model.IntentOther,
			wantCount:  1,
			wantNext:   model.StepAction,
			wantMild:   true,
			wantBumped: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, map[string]string{kindClassify: tt.reply})
			if tt.fail {
				f.cm.fail(kindClassify, context.DeadlineExceeded)
			}

			st, err := f.h.Classify(context.Background(), newState("hello there", tt.start))
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if st.Intent != tt.wantIntent {
				t.Fatalf("intent: want %s, got %s", tt.wantIntent, st.Intent)
			}
			if st.FrustrationCount != tt.wantCount {
				t.Fatalf("frustration count: want %d, got %d", tt.wantCount, st.FrustrationCount)
			}
			if st.NextStep != tt.wantNext {
				t.Fatalf("next step: want %s, got %s", tt.wantNext, st.NextStep)
			}
			if st.MildFrustration != tt.wantMild {
				t.Fatalf("mild frustration: want %v, got %v", tt.wantMild, st.MildFrustration)
			}
			if st.FrustrationBumped() != tt.wantBumped {
				t.Fatalf("bumped: want %v, got %v", tt.wantBumped, st.FrustrationBumped())
			}
		})
	}
}

func TestClassifyRefundFastPath(t *testing.T) {
	t.Parallel()

	t.Run("escalates to a manager", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, map[string]string{
			kindRefund: "(intent<||>manager_approval<||>0.9<||>high)<|COMPLETE|>",
		})
		st, err := f.h.Classify(context.Background(), newState("I want a refund for order 12", 0))
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if st.Intent != model.IntentManagerApproval || st.NextStep != model.StepManagerApproval {
			t.Fatalf("unexpected routing: %s -> %s", st.Intent, st.NextStep)
		}
		if f.cm.count(kindClassify) != 0 {
			t.Fatal("classification call must be skipped for refund requests")
		}
		if st.FrustrationCount != 0 {
			t.Fatalf("refund must not raise frustration, got %d", st.FrustrationCount)
		}
	})

	t.Run("policy question goes to the knowledge base", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, map[string]string{
			kindRefund: "(intent<||>knowledge_base_query<||>0.8<||>low)<|COMPLETE|>",
		})
		st, _ := f.h.Classify(context.Background(), newState("how long do refunds take?", 0))
		if st.Intent != model.IntentKnowledgeBaseQuery || st.NextStep != model.StepAction {
			t.Fatalf("unexpected routing: %s -> %s", st.Intent, st.NextStep)
		}
	})

	t.Run("verification failure escalates", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.cm.fail(kindRefund, errors.New("quota exceeded"))
		st, _ := f.h.Classify(context.Background(), newState("give me my money back", 0))
		if st.Intent != model.IntentManagerApproval {
			t.Fatalf("want manager_approval, got %s", st.Intent)
		}
	})

	t.Run("model label refund_request is verified", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, map[string]string{
			kindClassify: "(intent<||>refund_request<||>0.9)<|COMPLETE|>",
			kindRefund:   "(intent<||>manager_approval<||>0.9<||>normal)<|COMPLETE|>",
		})
		st, _ := f.h.Classify(context.Background(), newState("this item broke, I am not happy", 0))
		if st.Intent != model.IntentManagerApproval {
			t.Fatalf("want manager_approval, got %s", st.Intent)
		}
		if f.cm.count(kindRefund) != 1 {
			t.Fatalf("want one verification call, got %d", f.cm.count(kindRefund))
		}
	})
}

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		intent     model.Intent
		msg        string
		reply      string
		wantQT     model.QueryType
		wantEntity model.Entity
		wantModel  bool
	}{
		{
			name:       "order fast path",
			intent:     model.IntentOrderStatus,
			msg:        "where is order #3?",
			wantQT:     model.QueryOrderStatus,
			wantEntity: model.Entity{Type: model.EntityOrderNumber, Value: "3"},
		},
		{
			name:       "bare order number",
			intent:     model.IntentOrderStatus,
			msg:        "#999",
			wantQT:     model.QueryOrderStatus,
			wantEntity: model.Entity{Type: model.EntityOrderNumber, Value: "999"},
		},
		{
			name:       "order from the model",
			intent:     model.IntentOrderStatus,
			msg:        "can you check the one I placed yesterday, it's forty two",
			reply:      "(entity<||>order_number<||>42<||>0.9)<|COMPLETE|>",
			wantQT:     model.QueryOrderStatus,
			wantEntity: model.Entity{Type: model.EntityOrderNumber, Value: "42"},
			wantModel:  true,
		},
		{
			name:       "order the model cannot find",
			intent:     model.IntentOrderStatus,
			msg:        "where is my stuff",
			reply:      "(entity<||>order_number<||>unknown<||>0.2)<|COMPLETE|>",
			wantQT:     model.QueryOrderStatus,
			wantEntity: model.UnknownEntity(),
			wantModel:  true,
		},
		{
			name:       "specific coupon",
			intent:     model.IntentCouponQuery,
			msg:        "I'd like coupon SUMMER25",
			wantQT:     model.QuerySpecificCoupon,
			wantEntity: model.Entity{Type: model.EntityCouponCode, Value: "SUMMER25"},
		},
		{
			name:       "list coupons",
			intent:     model.IntentCouponQuery,
			msg:        "show me all available coupons",
			wantQT:     model.QueryAllCoupons,
			wantEntity: model.UnknownEntity(),
		},
		{
			name:       "filler word from the model downgrades to general",
			intent:     model.IntentCouponQuery,
			msg:        "Can I get a discount?",
			reply:      "(entity<||>coupon_code<||>CAN<||>0.6)<|COMPLETE|>",
			wantQT:     model.QueryGeneralCoupon,
			wantEntity: model.UnknownEntity(),
			wantModel:  true,
		},
		{
			name:       "product list",
			intent:     model.IntentProductAvailability,
			msg:        "What products do you have?",
			wantQT:     model.QueryListProducts,
			wantEntity: model.UnknownEntity(),
		},
		{
			name:       "named product wins over a list request",
			intent:     model.IntentProductAvailability,
			msg:        "what items do you have? is the wireless mouse in stock",
			wantQT:     model.QuerySpecificProduct,
			wantEntity: model.Entity{Type: model.EntityProductName, Value: "wireless mouse"},
		},
		{
			name:       "product fast path",
			intent:     model.IntentProductAvailability,
			msg:        "Do you have a smart watch?",
			wantQT:     model.QuerySpecificProduct,
			wantEntity: model.Entity{Type: model.EntityProductName, Value: "smart watch"},
		},
		{
			name:       "product from the model",
			intent:     model.IntentProductAvailability,
			msg:        "I need something to carry my laptop",
			reply:      "(entity<||>product_name<||>laptop backpack<||>0.7)<|COMPLETE|>",
			wantQT:     model.QuerySpecificProduct,
			wantEntity: model.Entity{Type: model.EntityProductName, Value: "laptop backpack"},
			wantModel:  true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, map[string]string{kindExtract: tt.reply})
			st := newState(tt.msg, 0)
			st.Intent = tt.intent

			st, err := f.h.Extract(context.Background(), st)
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if st.QueryType != tt.wantQT {
				t.Fatalf("query type: want %s, got %s", tt.wantQT, st.QueryType)
			}
			if st.Entity != tt.wantEntity {
				t.Fatalf("entity: want %+v, got %+v", tt.wantEntity, st.Entity)
			}
			if st.NextStep != model.StepAction {
				t.Fatalf("next step: want action, got %s", st.NextStep)
			}
			if got := f.cm.count(kindExtract) > 0; got != tt.wantModel {
				t.Fatalf("model called: want %v, got %v", tt.wantModel, got)
			}
		})
	}
}

func TestActLookups(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	act := func(intent model.Intent, qt model.QueryType, ent model.Entity, msg string) *model.ConversationState {
		t.Helper()
		st := newState(msg, 0)
		st.Intent, st.QueryType, st.Entity = intent, qt, ent
		st, err := f.h.Act(ctx, st)
		if err != nil {
			t.Fatalf("act: %v", err)
		}
		if st.NextStep != model.StepResponseSynthesis {
			t.Fatalf("next step: want response_synthesis, got %s", st.NextStep)
		}
		return st
	}

	st := act(model.IntentOrderStatus, model.QueryOrderStatus, model.Entity{Type: model.EntityOrderNumber, Value: "3"}, "order 3")
	if !st.ActionResult.Found || st.ActionResult.Order == nil || st.ActionResult.Order.Status != "delivered" {
		t.Fatalf("unexpected order result: %+v", st.ActionResult)
	}

	st = act(model.IntentOrderStatus, model.QueryOrderStatus, model.Entity{Type: model.EntityOrderNumber, Value: "999"}, "order 999")
	if st.ActionResult.Found || st.ActionResult.Failed() {
		t.Fatalf("want a clean not-found result, got %+v", st.ActionResult)
	}

	st = act(model.IntentOrderStatus, model.QueryOrderStatus, model.UnknownEntity(), "where is it")
	if st.ActionResult.QueryType != model.QueryClarification {
		t.Fatalf("want clarification, got %+v", st.ActionResult)
	}
	if st.ActionResult.Message != replies.Clarification("en", model.IntentOrderStatus) {
		t.Fatalf("unexpected clarification: %q", st.ActionResult.Message)
	}

	st = act(model.IntentProductAvailability, model.QueryListProducts, model.UnknownEntity(), "what do you sell")
	if st.ActionResult.QueryType != model.QueryListProducts || len(st.ActionResult.Products) == 0 {
		t.Fatalf("unexpected product list: %+v", st.ActionResult)
	}

	st = act(model.IntentCouponQuery, model.QueryGeneralCoupon, model.UnknownEntity(), "any coupons?")
	if !st.ActionResult.Found || len(st.ActionResult.Coupons) == 0 {
		t.Fatalf("unexpected general coupon result: %+v", st.ActionResult)
	}

	st = act(model.IntentCouponQuery, model.QuerySpecificCoupon, model.Entity{Type: model.EntityCouponCode, Value: "SUMMER25"}, "coupon SUMMER25")
	if st.ActionResult.Coupon == nil || st.ActionResult.Coupon.Outcome != model.CouponSuccess {
		t.Fatalf("want success, got %+v", st.ActionResult)
	}
	st = act(model.IntentCouponQuery, model.QuerySpecificCoupon, model.Entity{Type: model.EntityCouponCode, Value: "WELCOME10"}, "coupon WELCOME10")
	c := st.ActionResult.Coupon
	if c == nil || c.Outcome != model.CouponAlreadyAssigned || c.AssignedCode != "SUMMER25" {
		t.Fatalf("want already_assigned with SUMMER25, got %+v", c)
	}
}

func TestActKnowledge(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	st := newState("shipping information", 0)
	st.Intent = model.IntentKnowledgeBaseQuery
	st, _ = f.h.Act(ctx, st)
	if st.RetrievedContext == nil || !strings.Contains(*st.RetrievedContext, "Shipping information") {
		t.Fatalf("expected shipping context, got %v", st.RetrievedContext)
	}
	if !st.ActionResult.KnowledgeFound || st.ActionResult.QueryType != model.QueryKnowledge {
		t.Fatalf("unexpected result: %+v", st.ActionResult)
	}

	st = newState("xyzzy plugh", 0)
	st.Intent = model.IntentOther
	st, _ = f.h.Act(ctx, st)
	if st.RetrievedContext != nil {
		t.Fatalf("expected nil context, got %q", *st.RetrievedContext)
	}
	if st.ActionResult.Found || st.ActionResult.KnowledgeFound || st.ActionResult.Intent != model.IntentOther {
		t.Fatalf("unexpected result: %+v", st.ActionResult)
	}
}

func TestActToolFailureBecomesPayload(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, func(svc *tools.Services, _ *Config) {
		svc.Orders = failingOrders{}
	})

	st := newState("order 3", 0)
	st.Intent, st.QueryType = model.IntentOrderStatus, model.QueryOrderStatus
	st.Entity = model.Entity{Type: model.EntityOrderNumber, Value: "3"}
	st, err := f.h.Act(context.Background(), st)
	if err != nil {
		t.Fatalf("act must not fail the turn: %v", err)
	}
	if !st.ActionResult.Failed() || st.ActionResult.Intent != model.IntentOrderStatus {
		t.Fatalf("want error payload, got %+v", st.ActionResult)
	}
}

func TestHandleFrustration(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{kindEmpathy: "I'm really sorry about this. Let me get you to a person."})
	st, err := f.h.HandleFrustration(context.Background(), newState("this is useless", 2))
	if err != nil {
		t.Fatalf("frustration: %v", err)
	}
	if st.Reply != "I'm really sorry about this. Let me get you to a person." {
		t.Fatalf("unexpected reply: %q", st.Reply)
	}
	if len(st.QuickActions) == 0 || st.QuickActions[0].Label != "Talk to a human agent" {
		t.Fatalf("expected handoff actions, got %+v", st.QuickActions)
	}

	f = newFixture(t, nil)
	f.cm.fail(kindEmpathy, context.DeadlineExceeded)
	st, _ = f.h.HandleFrustration(context.Background(), newState("hello?", 1))
	if st.Reply != replies.Frustration("en", false) {
		t.Fatalf("want templated fallback, got %q", st.Reply)
	}
	if st.QuickActions != nil {
		t.Fatalf("moderate frustration must not offer handoff: %+v", st.QuickActions)
	}
}

func TestHandleApproval(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, nil)
	st, err := f.h.HandleApproval(ctx, newState("I want a refund for order 12", 1))
	if err != nil {
		t.Fatalf("approval: %v", err)
	}
	if !st.ManagerApprovalRequired || st.Reply != replies.ApprovalAck("en") {
		t.Fatalf("unexpected state: required=%v reply=%q", st.ManagerApprovalRequired, st.Reply)
	}
	pending, err := f.store.PendingApprovals(ctx, "s-1")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("want one approval, got %d", len(pending))
	}
	got := pending[0]
	if got.RequestType != RequestTypeRefund || got.OrderID != "12" || got.Urgency != UrgencyHigh {
		t.Fatalf("unexpected approval: %+v", got)
	}

	f = newFixture(t, nil, func(_ *tools.Services, cfg *Config) {
		cfg.Approvals = failingApprovals{}
	})
	st, err = f.h.HandleApproval(ctx, newState("let me speak to your manager", 0))
	if err != nil {
		t.Fatalf("recording failure must not fail the turn: %v", err)
	}
	if st.Reply != replies.ApprovalAck("en") || st.Approval.RequestType != RequestTypeManager {
		t.Fatalf("unexpected state: %+v", st.Approval)
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("preset reply is kept", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		st := newState("manager please", 0)
		st.Intent, st.Reply = model.IntentManagerApproval, "ack"
		st, _ = f.h.Synthesize(ctx, st)
		if st.Reply != "ack" || f.cm.count(kindResponse) != 0 {
			t.Fatalf("unexpected reply %q with %d model calls", st.Reply, f.cm.count(kindResponse))
		}
		if len(st.TurnMessages()) != 2 {
			t.Fatalf("want two appended messages, got %d", len(st.TurnMessages()))
		}
	})

	t.Run("structured payload uses templates", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		o, err := f.store.FindOrder(ctx, "3")
		if err != nil || o == nil {
			t.Fatalf("find order: %v", err)
		}
		st := newState("order 3", 1)
		st.Intent, st.MildFrustration = model.IntentOrderStatus, true
		st.Entity = model.Entity{Type: model.EntityOrderNumber, Value: "3"}
		st.ActionResult = &model.ActionResult{Intent: model.IntentOrderStatus, QueryType: model.QueryOrderStatus, Found: true, Order: o}
		st, _ = f.h.Synthesize(ctx, st)
		want := replies.WithApology("en", replies.Order("en", o))
		if st.Reply != want {
			t.Fatalf("want %q, got %q", want, st.Reply)
		}
		if f.cm.count(kindResponse) != 0 {
			t.Fatal("templated replies must not call the model")
		}
	})

	t.Run("missing knowledge gives the generic reply", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		st := newState("xyzzy", 0, schema.UserMessage("hi"), schema.AssistantMessage("hello", nil))
		st.Intent = model.IntentKnowledgeBaseQuery
		st.ActionResult = &model.ActionResult{Intent: model.IntentKnowledgeBaseQuery, QueryType: model.QueryKnowledge}
		st, _ = f.h.Synthesize(ctx, st)
		if st.Reply != replies.GenericReply("en") || st.RetrievedContext != nil {
			t.Fatalf("unexpected reply %q", st.Reply)
		}
		if st.QuickActions != nil {
			t.Fatalf("quick actions only on the first message: %+v", st.QuickActions)
		}
		if len(st.Messages) != 4 {
			t.Fatalf("want history plus two, got %d", len(st.Messages))
		}
	})

	t.Run("grounded knowledge goes to the model", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, map[string]string{kindResponse: "Standard shipping takes 3 to 7 business days."})
		kb := "Shipping information:\nStandard shipping takes 3 to 7 business days."
		st := newState("how long is shipping", 0)
		st.Intent = model.IntentKnowledgeBaseQuery
		st.RetrievedContext = &kb
		st.ActionResult = &model.ActionResult{Intent: model.IntentKnowledgeBaseQuery, QueryType: model.QueryKnowledge, Found: true, KnowledgeFound: true}
		st, _ = f.h.Synthesize(ctx, st)
		if st.Reply != "Standard shipping takes 3 to 7 business days." {
			t.Fatalf("unexpected reply %q", st.Reply)
		}
		if len(st.QuickActions) == 0 {
			t.Fatal("expected first message quick actions")
		}
	})

	t.Run("greeting falls back when the model fails", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.cm.fail(kindResponse, context.DeadlineExceeded)
		st := newState("hi", 0)
		st.Intent = model.IntentGreeting
		st, _ = f.h.Synthesize(ctx, st)
		if st.Reply != replies.Greeting("en") {
			t.Fatalf("want greeting template, got %q", st.Reply)
		}
	})
}
