// Package replies renders deterministic, localized reply text for
// structured action results and the fallback paths of the turn.
package replies

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

const (
	English = "en"
	Arabic  = "ar"
)

const dateLayout = "2006-01-02"

// Generic is the reply used whenever nothing better can be produced.
const Generic = "I'm here to help with orders, returns, and product information. How can I assist you today?"

// Lang maps a language tag onto a supported template language.
func Lang(lang string) string {
	if model.NormalizeLanguage(lang) == Arabic {
		return Arabic
	}
	return English
}

type phrases struct {
	generic           string
	greeting          string
	actionError       string
	mildApology       string
	askOrder          string
	askProduct        string
	askCoupon         string
	orderNotFound     string
	orderHeader       string
	orderTracking     string
	orderETA          string
	orderDelivered    string
	productInStock    string
	productOutOfStock string
	productNotFound   string
	productListHeader string
	productListEmpty  string
	productListFooter string
	couponSuccess     string
	couponAlready     string
	couponHeldOff     string
	couponInvalid     string
	couponListOne     string
	couponListMany    string
	couponListItem    string
	couponListNoDesc  string
	couponValidUntil  string
	couponNone        string
	couponGeneral     string
	percentWord       string
	frustrationMild   string
	frustrationHigh   string
	approvalAck       string
}

var catalog = map[string]phrases{
	English: {
		generic:           Generic,
		greeting:          "Hello! Welcome to our store. I can help you track an order, check product availability, find coupons, or answer questions about returns and shipping. What can I do for you?",
		actionError:       "I'm sorry, I couldn't retrieve that information right now. Please try again in a moment.",
		mildApology:       "I'm sorry for the trouble. ",
		askOrder:          "Could you please share your order number so I can check its status?",
		askProduct:        "Which product would you like me to check? Please tell me its name.",
		askCoupon:         "Which coupon code are you asking about?",
		orderNotFound:     "I couldn't find an order with the number #%s. Could you double-check the order number?",
		orderHeader:       "Your order #%s is %s. %s",
		orderTracking:     " Tracking number: %s.",
		orderETA:          " Estimated delivery: %s.",
		orderDelivered:    " Delivered on %s.",
		productInStock:    "Yes, %s is in stock (%d available) for %.2f %s.",
		productOutOfStock: "Sorry, %s is currently out of stock. It is usually priced at %.2f %s.",
		productNotFound:   "I couldn't find a product called \"%s\". Would you like to see what we have available?",
		productListHeader: "Here are the products currently in stock:\n",
		productListEmpty:  "We don't have any products in stock right now. Please check back later.",
		productListFooter: "\nWould you like to know more about any of these products?",
		couponSuccess:     "Great! I've assigned coupon %s to you. You can use it to get %s%% off your purchase.",
		couponAlready:     "You have already received coupon %s. You cannot request another coupon in this session.",
		couponHeldOff:     " You can use this coupon to get %s%% off your purchase.",
		couponInvalid:     "Sorry, the coupon %s is invalid or unavailable. Please check the code and try again, or ask about our available coupons.",
		couponListOne:     "We currently have an active promotion: %s\n\n",
		couponListMany:    "We have several promotions currently available:\n\n",
		couponListItem:    "• %s - use code '%s'%s\n",
		couponListNoDesc:  "Special promotion",
		couponValidUntil:  " (valid until %s)",
		couponNone:        "I'm sorry, but there are no active coupons available at the moment. Please check back later.",
		couponGeneral:     "Yes, we have %d active promotions right now. Ask me to list them, or tell me the code you'd like to use.",
		percentWord:       "discount",
		frustrationMild:   "I'm really sorry this has been frustrating. Let me do my best to sort it out. Could you tell me a bit more about what you need?",
		frustrationHigh:   "I'm very sorry for the frustration. I can connect you with a member of our support team who can help you directly.",
		approvalAck:       "Thank you. I've forwarded your request to a manager for approval. You'll hear back from us shortly.",
	},
	Arabic: {
		generic:           "أنا هنا لمساعدتك في الطلبات والمرتجعات ومعلومات المنتجات. كيف يمكنني مساعدتك اليوم؟",
		greeting:          "مرحبًا! أهلاً بك في متجرنا. يمكنني مساعدتك في تتبع طلبك أو التحقق من توفر المنتجات أو العثور على الكوبونات أو الإجابة عن أسئلة الإرجاع والشحن. كيف يمكنني مساعدتك؟",
		actionError:       "عذرًا، لم أتمكن من استرجاع هذه المعلومات الآن. يرجى المحاولة مرة أخرى بعد قليل.",
		mildApology:       "نأسف للإزعاج. ",
		askOrder:          "هل يمكنك مشاركة رقم الطلب حتى أتحقق من حالته؟",
		askProduct:        "ما المنتج الذي تريد أن أتحقق منه؟ يرجى ذكر اسمه.",
		askCoupon:         "ما هو رمز الكوبون الذي تسأل عنه؟",
		orderNotFound:     "لم أتمكن من العثور على طلب بالرقم #%s. هل يمكنك التحقق من رقم الطلب؟",
		orderHeader:       "طلبك رقم #%s حالته: %s. %s",
		orderTracking:     " رقم التتبع: %s.",
		orderETA:          " موعد التسليم المتوقع: %s.",
		orderDelivered:    " تم التسليم في %s.",
		productInStock:    "نعم، %s متوفر (%d قطعة) بسعر %.2f %s.",
		productOutOfStock: "عذرًا، %s غير متوفر حاليًا. سعره المعتاد %.2f %s.",
		productNotFound:   "لم أتمكن من العثور على منتج باسم \"%s\". هل تريد رؤية المنتجات المتوفرة؟",
		productListHeader: "هذه هي المنتجات المتوفرة حاليًا:\n",
		productListEmpty:  "لا توجد منتجات متوفرة حاليًا. يرجى التحقق لاحقًا.",
		productListFooter: "\nهل ترغب في معرفة المزيد عن أي من هذه المنتجات؟",
		couponSuccess:     "تم تخصيص الكوبون %s لك بنجاح! استمتع بخصم %s%% على مشترياتك.",
		couponAlready:     "لقد حصلت بالفعل على كوبون %s. لا يمكنك طلب كوبون آخر في هذه الجلسة.",
		couponHeldOff:     " يمكنك استخدام هذا الكوبون للحصول على خصم %s%% على مشترياتك.",
		couponInvalid:     "عذراً، الكوبون %s غير صالح أو غير متوفر. يرجى التحقق من الرمز والمحاولة مرة أخرى، أو اسأل عن الكوبونات المتاحة.",
		couponListOne:     "لدينا عرض ترويجي نشط: %s\n\n",
		couponListMany:    "لدينا عدة عروض ترويجية متاحة حاليًا:\n\n",
		couponListItem:    "• %s - استخدم الرمز '%s'%s\n",
		couponListNoDesc:  "عرض خاص",
		couponValidUntil:  " (صالح حتى %s)",
		couponNone:        "عذرًا، لا توجد كوبونات نشطة متاحة في الوقت الحالي. يرجى التحقق مرة أخرى لاحقًا.",
		couponGeneral:     "نعم، لدينا %d عروض نشطة حاليًا. اطلب مني عرضها أو أخبرني بالرمز الذي تريد استخدامه.",
		percentWord:       "خصم",
		frustrationMild:   "أعتذر حقًا عن هذا الإزعاج. سأبذل قصارى جهدي لحل المشكلة. هل يمكنك إخباري بالمزيد عما تحتاجه؟",
		frustrationHigh:   "أعتذر بشدة عن هذا الإحباط. يمكنني توصيلك بأحد أعضاء فريق الدعم لمساعدتك مباشرة.",
		approvalAck:       "شكرًا لك. لقد أرسلت طلبك إلى المدير للموافقة عليه. سنتواصل معك قريبًا.",
	},
}

func p(lang string) phrases {
	return catalog[Lang(lang)]
}

func GenericReply(lang string) string { return p(lang).generic }
func Greeting(lang string) string     { return p(lang).greeting }
func ActionError(lang string) string  { return p(lang).actionError }
func ApprovalAck(lang string) string  { return p(lang).approvalAck }

// WithApology prefixes reply with a short apology.
func WithApology(lang, reply string) string {
	return p(lang).mildApology + reply
}

// Frustration is the templated empathy reply used when the model is unavailable.
func Frustration(lang string, high bool) string {
	if high {
		return p(lang).frustrationHigh
	}
	return p(lang).frustrationMild
}

// Clarification asks for the entity the intent needs.
func Clarification(lang string, intent model.Intent) string {
	ph := p(lang)
	switch intent {
	case model.IntentOrderStatus:
		return ph.askOrder
	case model.IntentProductAvailability:
		return ph.askProduct
	case model.IntentCouponQuery:
		return ph.askCoupon
	}
	return ph.generic
}

func Order(lang string, o *model.OrderInfo) string {
	ph := p(lang)
	var b strings.Builder
	fmt.Fprintf(&b, ph.orderHeader, o.OrderID, o.StatusLabel, o.Description)
	if o.TrackingNumber != "" {
		fmt.Fprintf(&b, ph.orderTracking, o.TrackingNumber)
	}
	switch {
	case o.DeliveredAt != nil:
		fmt.Fprintf(&b, ph.orderDelivered, o.DeliveredAt.Format(dateLayout))
	case o.EstimatedDelivery != nil:
		fmt.Fprintf(&b, ph.orderETA, o.EstimatedDelivery.Format(dateLayout))
	}
	return strings.TrimSpace(b.String())
}

func OrderNotFound(lang, orderID string) string {
	return fmt.Sprintf(p(lang).orderNotFound, strings.TrimPrefix(orderID, "#"))
}

func Product(lang string, pr *model.ProductInfo) string {
	ph := p(lang)
	if pr.InStock {
		return fmt.Sprintf(ph.productInStock, pr.Name, pr.StockQuantity, pr.Price, pr.Currency)
	}
	return fmt.Sprintf(ph.productOutOfStock, pr.Name, pr.Price, pr.Currency)
}

func ProductNotFound(lang, name string) string {
	return fmt.Sprintf(p(lang).productNotFound, name)
}

func ProductList(lang string, ps []model.ProductInfo) string {
	ph := p(lang)
	if len(ps) == 0 {
		return ph.productListEmpty
	}
	var b strings.Builder
	b.WriteString(ph.productListHeader)
	for _, pr := range ps {
		fmt.Fprintf(&b, "• %s - %.2f %s\n", pr.Name, pr.Price, pr.Currency)
	}
	b.WriteString(ph.productListFooter)
	return b.String()
}

// Coupon renders the outcome of a coupon request.
func Coupon(lang string, req *model.CouponRequest) string {
	ph := p(lang)
	switch req.Outcome {
	case model.CouponSuccess:
		discount := ""
		if req.Coupon != nil {
			discount = formatDiscount(req.Coupon.Discount)
		}
		return fmt.Sprintf(ph.couponSuccess, req.AssignedCode, discount)
	case model.CouponAlreadyAssigned:
		reply := fmt.Sprintf(ph.couponAlready, req.AssignedCode)
		if req.Coupon != nil && req.Coupon.Code == req.AssignedCode {
			reply += fmt.Sprintf(ph.couponHeldOff, formatDiscount(req.Coupon.Discount))
		}
		return reply
	default:
		code := req.RequestedCode
		if code == "" {
			code = "?"
		}
		return fmt.Sprintf(ph.couponInvalid, code)
	}
}

var percentRe = regexp.MustCompile(`\d+(?:\.\d+)? ?%`)

// StripPercentages replaces percentage values in a coupon description so
// listings advertise promotions without quoting discount sizes.
func StripPercentages(lang, desc string) string {
	return percentRe.ReplaceAllString(desc, p(lang).percentWord)
}

// CouponList renders active coupons without their discount values.
func CouponList(lang string, cs []model.CouponInfo) string {
	ph := p(lang)
	if len(cs) == 0 {
		return ph.couponNone
	}

	var b strings.Builder
	if len(cs) == 1 {
		desc := ph.couponListNoDesc
		if cs[0].Description != "" {
			desc = StripPercentages(lang, cs[0].Description)
		}
		fmt.Fprintf(&b, ph.couponListOne, desc)
	} else {
		b.WriteString(ph.couponListMany)
	}
	for _, c := range cs {
		desc := ph.couponListNoDesc
		if c.Description != "" {
			desc = StripPercentages(lang, c.Description)
		}
		fmt.Fprintf(&b, ph.couponListItem, desc, c.Code, validUntil(ph, c.ExpiresAt))
	}
	return strings.TrimRight(b.String(), "\n")
}

func CouponGeneral(lang string, cs []model.CouponInfo) string {
	ph := p(lang)
	if len(cs) == 0 {
		return ph.couponNone
	}
	return fmt.Sprintf(ph.couponGeneral, len(cs))
}

func validUntil(ph phrases, t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf(ph.couponValidUntil, t.Format(dateLayout))
}

func formatDiscount(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// Structured renders a templated reply for results that carry a payload.
// ok is false when r needs generated text instead.
func Structured(lang string, r *model.ActionResult, entity model.Entity) (string, bool) {
	if r == nil {
		return "", false
	}
	if r.Failed() {
		return ActionError(lang), true
	}
	if r.QueryType == model.QueryClarification {
		if r.Message != "" {
			return r.Message, true
		}
		return Clarification(lang, r.Intent), true
	}

	switch r.Intent {
	case model.IntentOrderStatus:
		if r.Found && r.Order != nil {
			return Order(lang, r.Order), true
		}
		return OrderNotFound(lang, entity.Value), true

	case model.IntentProductAvailability:
		if r.QueryType == model.QueryListProducts {
			return ProductList(lang, r.Products), true
		}
		if r.Found && r.Product != nil {
			return Product(lang, r.Product), true
		}
		return ProductNotFound(lang, entity.Value), true

	case model.IntentCouponQuery:
		switch r.QueryType {
		case model.QuerySpecificCoupon:
			if r.Coupon != nil {
				return Coupon(lang, r.Coupon), true
			}
		case model.QueryAllCoupons:
			return CouponList(lang, r.Coupons), true
		}
		return CouponGeneral(lang, r.Coupons), true
	}
	return "", false
}
