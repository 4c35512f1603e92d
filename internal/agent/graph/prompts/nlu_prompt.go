package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

var (
	//go:embed template/classify_prompt.txt
	classifySystemPrompt string
	//go:embed template/extract_prompt.txt
	extractSystemPrompt string
	//go:embed template/refund_verify_prompt.txt
	refundVerifySystemPrompt string
)

// RenderClassifySystem renders the intent classification system prompt.
func RenderClassifySystem(ctx context.Context, cfg model.ResponsePromptConfig) (string, error) {
	return renderTuplePrompt(ctx, "classify", classifySystemPrompt,
		"{business_name}", cfg.BusinessName,
		"{business_type}", cfg.BusinessType,
	)
}

// RenderExtractSystem renders the entity extraction prompt for one intent.
func RenderExtractSystem(ctx context.Context, intent model.Intent) (string, error) {
	et := model.EntityTypeFor(intent)
	if et == model.EntityNone {
		return "", fmt.Errorf("intent %q has no entity to extract", intent)
	}
	return renderTuplePrompt(ctx, "extract", extractSystemPrompt,
		"{intent}", intent.String(),
		"{entity_type}", string(et),
	)
}

// RenderRefundVerifySystem renders the refund verification prompt.
func RenderRefundVerifySystem(ctx context.Context) (string, error) {
	return renderTuplePrompt(ctx, "refund_verify", refundVerifySystemPrompt)
}

// renderTuplePrompt substitutes known tokens only, so the braces of the
// tuple format survive, then passes the result through an Eino prompt
// template so prompt callbacks fire.
func renderTuplePrompt(ctx context.Context, name, tpl string, pairs ...string) (string, error) {
	pairs = append(pairs,
		"{TD}", parsers.TupDelim,
		"{RD}", parsers.RecDelim,
		"{CD}", parsers.EndDelim,
	)
	content := strings.NewReplacer(pairs...).Replace(tpl)

	t := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := t.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("%s prompt callbacks: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt callbacks: empty result", name)
	}
	return msgs[0].Content, nil
}
