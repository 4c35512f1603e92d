package parsers

import (
	"testing"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

func TestOrderNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"3", "3", true},
		{" #999 ", "999", true},
		{"Where is order #12345?", "12345", true},
		{"my order number is 42", "42", true},
		{"order id: 7", "7", true},
		{"check order 55 please", "55", true},
		{"tracking for #98765", "98765", true},
		{"where is my order?", "", false},
		{"I bought 3 items", "", false},
	}
	for _, tc := range cases {
		got, ok := OrderNumber(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("OrderNumber(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBareOrderNumber(t *testing.T) {
	t.Parallel()

	if id, ok := BareOrderNumber("3"); !ok || id != "3" {
		t.Fatalf("bare digit rejected")
	}
	if _, ok := BareOrderNumber("order 3"); ok {
		t.Fatalf("text with digits is not a bare number")
	}
}

func TestIsRefundRequest(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"I want a refund", "Can I get my money back?", "please reimburse me", "REFUND NOW"} {
		if !IsRefundRequest(in) {
			t.Fatalf("IsRefundRequest(%q) = false", in)
		}
	}
	for _, in := range []string{"what is your return policy?", "hello"} {
		if IsRefundRequest(in) {
			t.Fatalf("IsRefundRequest(%q) = true", in)
		}
	}
}

func TestCouponQuery(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		qt      model.QueryType
		code    string
		decided bool
	}{
		{"Do you have SUMMER25 coupon?", model.QuerySpecificCoupon, "SUMMER25", true},
		{"what about WELCOME10?", model.QuerySpecificCoupon, "WELCOME10", true},
		{"apply coupon code freeship", model.QuerySpecificCoupon, "FREESHIP", true},
		{"What coupons do you have?", model.QueryAllCoupons, "", true},
		{"show me all active discounts", model.QueryAllCoupons, "", true},
		{"I need a coupon please", model.QueryGeneralCoupon, "", true},
		{"Can I get a discount?", "", "", false},
		{"CAN I GET A DISCOUNT", "", "", false},
		{"I have a coupon from a friend, does it work?", model.QueryGeneralCoupon, "", true},
		{"is there a coupon on shoes?", model.QueryGeneralCoupon, "", true},
		{"which coupon should I use?", model.QueryGeneralCoupon, "", true},
		{"my coupon lemonade failed", "", "", false},
		{"try coupon ab", "", "", false},
		{"use coupon SAVE", model.QuerySpecificCoupon, "SAVE", true},
		{"coupon summer25 please", model.QuerySpecificCoupon, "SUMMER25", true},
	}
	for _, tc := range cases {
		qt, code, decided := CouponQuery(tc.in)
		if qt != tc.qt || code != tc.code || decided != tc.decided {
			t.Fatalf("CouponQuery(%q) = %q, %q, %v; want %q, %q, %v", tc.in, qt, code, decided, tc.qt, tc.code, tc.decided)
		}
	}
}

func TestNormalizeCouponCode(t *testing.T) {
	t.Parallel()

	for _, filler := range []string{"CAN", "get", "Have", "unknown", "", "a"} {
		if _, ok := NormalizeCouponCode(filler); ok {
			t.Fatalf("NormalizeCouponCode(%q) accepted a filler word", filler)
		}
	}
	if code, ok := NormalizeCouponCode(" summer25. "); !ok || code != "SUMMER25" {
		t.Fatalf("code = %q, %v", code, ok)
	}
	if _, ok := NormalizeCouponCode("DROP TABLE"); ok {
		t.Fatalf("codes with spaces must be rejected")
	}
}

func TestProductPatterns(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"What do you have?", "what products are available", "show me your catalog", "what's available"} {
		if !IsProductListRequest(in) {
			t.Fatalf("IsProductListRequest(%q) = false", in)
		}
	}
	if IsProductListRequest("Do you have wireless earbuds?") {
		t.Fatalf("specific product question is not a list request")
	}

	cases := map[string]string{
		"Do you have wireless earbuds?":       "wireless earbuds",
		"do you sell a Smart Watch in stock":  "Smart Watch",
		"Is the Bluetooth Speaker available?": "Bluetooth Speaker",
		"I'm looking for a laptop backpack":   "laptop backpack",
	}
	for in, want := range cases {
		got, ok := ProductName(in)
		if !ok || got != want {
			t.Fatalf("ProductName(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if name, ok := ProductName("do you have any products?"); ok {
		t.Fatalf("generic catalog wording read as product %q", name)
	}
	if _, ok := ProductName("hello there"); ok {
		t.Fatalf("greeting must not yield a product")
	}
}
