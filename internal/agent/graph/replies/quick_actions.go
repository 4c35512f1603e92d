package replies

import "github.com/Chative-core-poc-v1/supportbot/internal/agent/model"

var firstMessageActions = map[string]map[model.Intent][]model.QuickAction{
	English: {
		model.IntentOrderStatus: {
			{Label: "Track another order", Message: "Where is my order?"},
			{Label: "Return policy", Message: "What is your return policy?"},
		},
		model.IntentKnowledgeBaseQuery: {
			{Label: "Shipping times", Message: "How long does shipping take?"},
			{Label: "Payment methods", Message: "What payment methods do you accept?"},
		},
		model.IntentProductAvailability: {
			{Label: "Another product", Message: "Do you have a smart watch?"},
			{Label: "What's in stock", Message: "What products do you have?"},
		},
		model.IntentCouponQuery: {
			{Label: "Available coupons", Message: "Show me all available coupons"},
		},
		model.IntentGreeting: {
			{Label: "Track my order", Message: "Where is my order?"},
			{Label: "Browse products", Message: "What products do you have?"},
			{Label: "Coupons", Message: "Do you have any coupons?"},
		},
	},
	Arabic: {
		model.IntentOrderStatus: {
			{Label: "تتبع طلب آخر", Message: "أين طلبي؟"},
			{Label: "سياسة الإرجاع", Message: "ما هي سياسة الإرجاع؟"},
		},
		model.IntentKnowledgeBaseQuery: {
			{Label: "مدة الشحن", Message: "كم يستغرق الشحن؟"},
			{Label: "طرق الدفع", Message: "ما هي طرق الدفع المتاحة؟"},
		},
		model.IntentProductAvailability: {
			{Label: "منتج آخر", Message: "هل لديكم ساعة ذكية؟"},
			{Label: "المنتجات المتوفرة", Message: "ما هي المنتجات المتوفرة؟"},
		},
		model.IntentCouponQuery: {
			{Label: "الكوبونات المتاحة", Message: "أرني جميع الكوبونات المتاحة"},
		},
		model.IntentGreeting: {
			{Label: "تتبع طلبي", Message: "أين طلبي؟"},
			{Label: "تصفح المنتجات", Message: "ما هي المنتجات المتوفرة؟"},
			{Label: "الكوبونات", Message: "هل لديكم كوبونات؟"},
		},
	},
}

var handoffActions = map[string][]model.QuickAction{
	English: {
		{Label: "Talk to a human agent", Message: "I want to talk to a human agent"},
		{Label: "Keep chatting", Message: "Let's keep trying"},
	},
	Arabic: {
		{Label: "التحدث مع موظف", Message: "أريد التحدث مع موظف"},
		{Label: "متابعة المحادثة", Message: "لنواصل المحاولة"},
	},
}

// FirstMessageActions returns the suggestions shown after the opening turn.
func FirstMessageActions(lang string, intent model.Intent) []model.QuickAction {
	return clone(firstMessageActions[Lang(lang)][intent])
}

// HandoffActions returns the human handoff suggestions for high frustration.
func HandoffActions(lang string) []model.QuickAction {
	return clone(handoffActions[Lang(lang)])
}

func clone(in []model.QuickAction) []model.QuickAction {
	if len(in) == 0 {
		return nil
	}
	return append([]model.QuickAction(nil), in...)
}
