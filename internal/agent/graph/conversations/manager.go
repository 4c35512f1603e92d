package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// DefaultMaxTurns bounds how much history goes into a prompt.
const DefaultMaxTurns = 6

// MessagesManager formats conversation history for the model call sites.
type MessagesManager struct {
	maxTurns int
}

func NewMessagesManager(maxTurns int) *MessagesManager {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MessagesManager{maxTurns: maxTurns}
}

// =========== Context for classification and extraction ===========

// BuildNLUContext renders recent history and the message to analyse in the
// tagged format the NLU prompts expect.
func (cm *MessagesManager) BuildNLUContext(history []*schema.Message, message string) string {
	var b strings.Builder
	b.WriteString(cm.buildHistoryContext(history))
	b.WriteString("\n<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + message + ")\n")
	b.WriteString("</current_message_to_analyze>")
	return b.String()
}

// NLUMessages builds the full input of an NLU model call.
func (cm *MessagesManager) NLUMessages(systemPrompt string, history []*schema.Message, message string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(cm.BuildNLUContext(history, message)),
	}
}

func (cm *MessagesManager) buildHistoryContext(messages []*schema.Message) string {
	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, msg := range trimTail(messages, cm.maxTurns) {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>")
	return b.String()
}

// =========== Context for response generation ===========

// BuildResponseContext replays recent history as chat messages after the
// system prompt and ends with the current user message.
func (cm *MessagesManager) BuildResponseContext(systemPrompt string, history []*schema.Message, message string) []*schema.Message {
	recent := trimTail(history, cm.maxTurns)
	messages := make([]*schema.Message, 0, len(recent)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, m := range recent {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != schema.User && m.Role != schema.Assistant {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, schema.UserMessage(message))
	return messages
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}
