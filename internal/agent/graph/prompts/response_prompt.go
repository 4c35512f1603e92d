package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

var (
	//go:embed template/response_prompt.txt
	responseSystemPrompt string
	//go:embed template/empathy_prompt.txt
	empathySystemPrompt string
)

// ResponseVars is the grounding handed to the response model.
type ResponseVars struct {
	Intent          model.Intent
	Language        string
	Context         string
	ActionResult    string
	MildFrustration bool
}

// RenderResponseSystem renders the synthesis system prompt.
func RenderResponseSystem(ctx context.Context, cfg model.ResponsePromptConfig, v ResponseVars) (string, error) {
	return renderGoTemplate(ctx, "response", responseSystemPrompt, map[string]any{
		"BusinessType":    cfg.BusinessType,
		"BusinessName":    cfg.BusinessName,
		"Language":        model.NormalizeLanguage(v.Language),
		"Intent":          v.Intent.String(),
		"Context":         v.Context,
		"ActionResult":    v.ActionResult,
		"MildFrustration": v.MildFrustration,
	})
}

// RenderEmpathySystem renders the frustration reply prompt.
func RenderEmpathySystem(ctx context.Context, cfg model.ResponsePromptConfig, language string, high bool) (string, error) {
	return renderGoTemplate(ctx, "empathy", empathySystemPrompt, map[string]any{
		"BusinessType": cfg.BusinessType,
		"BusinessName": cfg.BusinessName,
		"Language":     model.NormalizeLanguage(language),
		"High":         high,
	})
}

func renderGoTemplate(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	t := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tpl),
	)
	msgs, err := t.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}
