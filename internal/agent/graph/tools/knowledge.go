package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/knowledge"
)

// ===================================
// Knowledge Base Tool
// ===================================

type KnowledgeInput struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
}

type KnowledgeSource struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

type KnowledgeOutput struct {
	Found   bool              `json:"found"`
	Context string            `json:"context,omitempty"`
	Sources []KnowledgeSource `json:"sources,omitempty"`
}

func createKnowledgeTool(r retriever.Retriever) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: KnowledgeBaseRetriever,
			Desc: "Search the store's policy and FAQ documents (returns, refunds, shipping, payment, warranty). Returns the most relevant passages.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The customer's question.",
					Required: true,
				},
				"language": {
					Type: "string",
					Desc: "Preferred document language, e.g. en or ar.",
				},
			}),
		},
		func(ctx context.Context, in *KnowledgeInput) (*KnowledgeOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}

			var opts []retriever.Option
			if in.Language != "" {
				opts = append(opts, retriever.WithDSLInfo(map[string]any{knowledge.DSLLanguage: in.Language}))
			}
			docs, err := r.Retrieve(ctx, in.Query, opts...)
			if err != nil {
				return nil, err
			}
			if len(docs) == 0 {
				return &KnowledgeOutput{Found: false}, nil
			}

			out := &KnowledgeOutput{Found: true}
			parts := make([]string, 0, len(docs))
			for _, d := range docs {
				title, _ := d.MetaData["title"].(string)
				out.Sources = append(out.Sources, KnowledgeSource{ID: d.ID, Title: title, Score: d.Score()})
				if title != "" {
					parts = append(parts, title+":\n"+d.Content)
				} else {
					parts = append(parts, d.Content)
				}
			}
			out.Context = strings.Join(parts, "\n\n")
			return out, nil
		},
	)
}
