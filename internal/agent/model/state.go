package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Step names a state of the per-turn router.
type Step string

const (
	StepClassifyIntent    Step = "classify_intent"
	StepEntityExtraction  Step = "entity_extraction"
	StepAction            Step = "action"
	StepFrustration       Step = "frustration"
	StepManagerApproval   Step = "manager_approval"
	StepResponseSynthesis Step = "response_synthesis"
)

// DefaultLanguage is used when the caller sends no language.
const DefaultLanguage = "en"

// QuickAction is a suggested follow-up button shown next to a reply.
type QuickAction struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ConversationState is the unit of work for one turn. It is built from the
// session at turn start and only Messages and FrustrationCount survive it.
type ConversationState struct {
	SessionID   string
	Messages    []*schema.Message // history before this turn plus, once finalised, this turn's pair
	UserMessage string
	Language    string

	Intent           Intent
	Entity           Entity
	QueryType        QueryType // product/coupon sub-request chosen during extraction
	RetrievedContext *string
	ActionResult     *ActionResult

	FrustrationCount        int
	MildFrustration         bool
	ManagerApprovalRequired bool
	Approval                *ApprovalRequest

	NextStep     Step
	Reply        string
	QuickActions []QuickAction

	// copied from AppState when the turn completes
	Steps   []Step
	CostUSD float64

	frustrationBumped bool
	historyLen        int
	finalized         bool
}

// NewConversationState builds the turn state from a loaded session.
func NewConversationState(sess *Session, in TurnInput) *ConversationState {
	msgs := make([]*schema.Message, 0, len(sess.Messages)+2)
	msgs = append(msgs, sess.Messages...)
	return &ConversationState{
		SessionID:        sess.ID,
		Messages:         msgs,
		UserMessage:      strings.TrimSpace(in.Message),
		Language:         NormalizeLanguage(in.Language),
		FrustrationCount: sess.FrustrationCount,
		Entity:           UnknownEntity(),
		historyLen:       len(msgs),
	}
}

// History returns the messages that existed before this turn.
func (s *ConversationState) History() []*schema.Message {
	return s.Messages[:s.historyLen]
}

// IsFirstMessage reports whether this turn opens the conversation.
func (s *ConversationState) IsFirstMessage() bool {
	return s.historyLen == 0
}

// BumpFrustration increments the counter at most once per turn and
// reports whether it did.
func (s *ConversationState) BumpFrustration() bool {
	if s.frustrationBumped {
		return false
	}
	s.frustrationBumped = true
	s.FrustrationCount++
	return true
}

// FrustrationBumped reports whether this turn raised the counter.
func (s *ConversationState) FrustrationBumped() bool {
	return s.frustrationBumped
}

// Finalize appends the user message and the assistant reply exactly once.
func (s *ConversationState) Finalize(reply string) {
	if s.finalized {
		return
	}
	s.finalized = true
	s.Reply = reply
	s.Messages = append(s.Messages[:s.historyLen],
		schema.UserMessage(s.UserMessage),
		schema.AssistantMessage(reply, nil),
	)
}

// Finalized reports whether the turn's message pair has been appended.
func (s *ConversationState) Finalized() bool {
	return s.finalized
}

// TurnMessages returns the pair appended by Finalize.
func (s *ConversationState) TurnMessages() []*schema.Message {
	if !s.finalized {
		return nil
	}
	return s.Messages[s.historyLen:]
}

// NormalizeLanguage reduces a language tag to its lowercase primary subtag.
func NormalizeLanguage(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	if l == "" {
		return DefaultLanguage
	}
	return l
}

// AppState stores per-invocation bookkeeping for the Eino graph.
// All reads and writes happen inside state handlers or compose.ProcessState,
// which Eino serialises, so no extra locking is needed.
type AppState struct {
	SessionID    string
	Steps        []Step
	ModelCalls   int
	Fallbacks    []string
	TotalCostUSD float64
}

// TurnInput is the public input of one orchestrator turn.
type TurnInput struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Language  string `json:"language"`
}

// TurnOutput is the public result of one orchestrator turn.
type TurnOutput struct {
	SessionID               string        `json:"session_id"`
	Reply                   string        `json:"reply"`
	Intent                  Intent        `json:"intent"`
	Payload                 *ActionResult `json:"payload,omitempty"`
	QuickActions            []QuickAction `json:"quick_actions,omitempty"`
	ManagerApprovalRequired bool          `json:"manager_approval_required"`
	FrustrationCount        int           `json:"frustration_count"`
	Steps                   []Step        `json:"steps,omitempty"`
	CostUSD                 float64       `json:"cost_usd,omitempty"`
}
