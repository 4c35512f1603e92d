package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/Chative-core-poc-v1/supportbot/internal/metrics"
)

// NewAllCallbacks returns the handlers attached to every turn: component
// logging (prompt, model, tool) and per-node latency metrics.
func NewAllCallbacks(m *metrics.Metrics) []einocb.Handler {
	logging := callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()

	return []einocb.Handler{logging, NewNodeCallbacks(m)}
}
