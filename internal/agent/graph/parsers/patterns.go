package parsers

import (
	"regexp"
	"strings"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

// Fast paths that run ahead of the model. None of them replaces the model
// call, they only short-circuit the obvious cases.
var (
	bareOrderRe = regexp.MustCompile(`^\s*#?\s*(\d{1,12})\s*[.!?]?\s*$`)
	orderRes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)order\s*#\s*(\d+)`),
		regexp.MustCompile(`(?i)order\s*(?:number|no\.?|id)\s*(?:is\s*)?[:#]?\s*(\d+)`),
		regexp.MustCompile(`(?i)\border\s+(\d+)\b`),
		regexp.MustCompile(`#(\d{3,})`),
	}

	refundRe = regexp.MustCompile(`(?i)\b(refund(?:ed|s)?|money\s+back|reimburse(?:ment)?|charge\s*back|return\s+(?:my|the)\s+money)\b`)

	couponKeywordRe = regexp.MustCompile(`(?i)\bcoupon\s+(code\s+)?([A-Za-z0-9]+)\b`)
	couponTokenRe   = regexp.MustCompile(`\b([A-Z][A-Z0-9]{2,}[0-9]+[A-Z0-9]*|[A-Z]{4,})\b`)
	couponListRe    = regexp.MustCompile(`(?i)\b(all|list|show|available|active|current|which|what)\b.*\b(coupons|codes|discounts|promotions|promo\s+codes|offers|deals)\b`)

	productListRe    = regexp.MustCompile(`(?i)(\bwhat\b.*\b(products?|items?)\b|\bwhat\s+do\s+you\s+(?:have|sell|carry|offer)\b|\b(?:list|show)\b.*\b(products?|items?|catalog(?:ue)?)\b|\bwhat(?:'s| is)\s+available\b)`)
	genericProductRe = regexp.MustCompile(`(?i)^(?:any|some|your|all)?\s*(?:products?|items?|anything|something|stuff|catalog(?:ue)?)$`)
	productRes       = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bdo\s+you\s+(?:have|sell|carry|stock)\s+(?:any\s+|the\s+|a\s+|an\s+)?(.+?)(?:\s+(?:in\s+stock|available|right\s+now))?\s*[?.!]*$`),
		regexp.MustCompile(`(?i)\bis\s+(?:the\s+|a\s+|an\s+)?(.+?)\s+(?:in\s+stock|available)\b`),
		regexp.MustCompile(`(?i)\bare\s+(?:the\s+)?(.+?)\s+(?:in\s+stock|available)\b`),
		regexp.MustCompile(`(?i)\b(?:availability\s+of|stock\s+(?:of|for)|looking\s+for|price\s+of)\s+(?:the\s+|a\s+|an\s+)?(.+?)\s*[?.!]*$`),
	}
)

// couponFillerWords are common words that must never be read as a coupon code.
var couponFillerWords = map[string]struct{}{
	"A": {}, "ABOUT": {}, "ALL": {}, "AN": {}, "AND": {}, "ANY": {}, "ARE": {},
	"AVAILABLE": {}, "CAN": {}, "CODE": {}, "CODES": {}, "COULD": {}, "COUPON": {},
	"COUPONS": {}, "DEAL": {}, "DEALS": {}, "DISCOUNT": {}, "DISCOUNTS": {}, "DO": {},
	"FOR": {}, "FREE": {}, "GET": {}, "GIVE": {}, "HAVE": {}, "HELLO": {}, "HELP": {},
	"HI": {}, "HOW": {}, "I": {}, "IS": {}, "IT": {}, "LIST": {}, "ME": {}, "MY": {},
	"NEED": {}, "OFFER": {}, "OFFERS": {}, "PLEASE": {}, "PROMO": {}, "SHOW": {},
	"SOME": {}, "THANKS": {}, "THAT": {}, "THE": {}, "THERE": {}, "THIS": {}, "USE": {},
	"WANT": {}, "WHAT": {}, "WITH": {}, "YOU": {}, "YOUR": {},
	"APPLY": {}, "AT": {}, "BUT": {}, "BY": {}, "DID": {}, "DOES": {}, "EXPIRED": {},
	"FROM": {}, "IF": {}, "IN": {}, "INTO": {}, "MAY": {}, "MIGHT": {}, "MUST": {},
	"NO": {}, "NOT": {}, "OF": {}, "ON": {}, "OR": {}, "OUT": {}, "SHALL": {},
	"SHOULD": {}, "SO": {}, "STILL": {}, "TO": {}, "VALID": {}, "WAS": {}, "WHEN": {},
	"WHERE": {}, "WHICH": {}, "WHO": {}, "WHY": {}, "WILL": {}, "WORK": {}, "WORKS": {},
	"WOULD": {}, "YES": {},
}

// IsCouponFillerWord reports whether word is on the coupon denylist.
func IsCouponFillerWord(word string) bool {
	_, ok := couponFillerWords[strings.ToUpper(strings.TrimSpace(word))]
	return ok
}

// IsRefundRequest reports whether the message asks for money back.
func IsRefundRequest(msg string) bool {
	return refundRe.MatchString(msg)
}

// BareOrderNumber returns the identifier when the whole message is a number.
func BareOrderNumber(msg string) (string, bool) {
	m := bareOrderRe.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// OrderNumber finds an order identifier in free text.
func OrderNumber(msg string) (string, bool) {
	if id, ok := BareOrderNumber(msg); ok {
		return id, true
	}
	for _, re := range orderRes {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// CouponQuery classifies a coupon message without the model. It returns the
// query type and, for a specific lookup, the upper-cased code. decided is
// false when only the model can tell.
func CouponQuery(msg string) (qt model.QueryType, code string, decided bool) {
	if couponListRe.MatchString(msg) {
		return model.QueryAllCoupons, "", true
	}
	if m := couponKeywordRe.FindStringSubmatch(msg); m != nil {
		word := m[2]
		if IsCouponFillerWord(word) {
			return model.QueryGeneralCoupon, "", true
		}
		// after a bare "coupon" only a code-shaped word counts; "coupon code x" is explicit
		if m[1] != "" || looksLikeCode(word) {
			if c, ok := NormalizeCouponCode(word); ok {
				return model.QuerySpecificCoupon, c, true
			}
		}
	}
	for _, m := range couponTokenRe.FindAllStringSubmatch(msg, -1) {
		if c, ok := NormalizeCouponCode(m[1]); ok {
			return model.QuerySpecificCoupon, c, true
		}
	}
	return "", "", false
}

// looksLikeCode reports whether the word carries a digit or was typed in capitals.
func looksLikeCode(word string) bool {
	hasLetter := false
	for _, r := range word {
		switch {
		case r >= '0' && r <= '9':
			return true
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter
}

// NormalizeCouponCode validates a code proposed by the model. Filler words
// and malformed values are rejected.
func NormalizeCouponCode(v string) (string, bool) {
	code := strings.ToUpper(strings.Trim(strings.TrimSpace(v), "\"'`.,!?"))
	if code == "" || code == strings.ToUpper(model.UnknownValue) || IsCouponFillerWord(code) {
		return "", false
	}
	if len(code) < 3 || len(code) > 32 {
		return "", false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return "", false
		}
	}
	return code, true
}

// IsProductListRequest reports whether the user asks what is for sale.
func IsProductListRequest(msg string) bool {
	return productListRe.MatchString(msg)
}

// ProductName pulls a product name out of common availability phrasings.
func ProductName(msg string) (string, bool) {
	for _, re := range productRes {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(strings.Trim(m[1], "\"'?.!"))
		if name == "" || IsCouponFillerWord(name) || genericProductRe.MatchString(name) {
			continue
		}
		return name, true
	}
	return "", false
}
