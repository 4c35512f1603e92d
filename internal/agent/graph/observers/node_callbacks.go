package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/supportbot/internal/metrics"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

type nodeStartKey struct{}

// NewNodeCallbacks times every lambda node of the turn graph.
func NewNodeCallbacks(m *metrics.Metrics) einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if !isNode(info) {
				return ctx
			}
			return context.WithValue(ctx, nodeStartKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if isNode(info) {
				d := elapsed(ctx)
				m.RecordNode(info.Name, d, nil)
				logx.Debug().Str("node", info.Name).Dur("duration", d).Msg("node finished")
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if isNode(info) {
				m.RecordNode(info.Name, elapsed(ctx), err)
				logx.Error().Err(err).Str("node", info.Name).Msg("node failed")
			}
			return ctx
		}).
		Build()
}

func isNode(info *einocb.RunInfo) bool {
	return info != nil && info.Component == compose.ComponentOfLambda && info.Name != ""
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(nodeStartKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
