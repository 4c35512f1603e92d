package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// Runnable is the compiled per-turn graph.
type Runnable = compose.Runnable[*model.ConversationState, *model.ConversationState]

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Handlers    *nodes.Handlers
	MaxRunSteps int
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.ConversationState, *model.ConversationState]
}

// BuildGraph constructs and returns the compiled turn graph:
//
//	START -> classify_intent -> {entity_extraction -> action, action, frustration, manager_approval}
//	      -> response_synthesis -> END
func BuildGraph(ctx context.Context, config *GraphConfig) (Runnable, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Handlers == nil {
		return nil, fmt.Errorf("node handlers are nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.ConversationState, *model.ConversationState](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	h := b.config.Handlers
	steps := []struct {
		step model.Step
		fn   func(context.Context, *model.ConversationState) (*model.ConversationState, error)
	}{
		{model.StepClassifyIntent, h.Classify},
		{model.StepEntityExtraction, h.Extract},
		{model.StepAction, h.Act},
		{model.StepFrustration, h.HandleFrustration},
		{model.StepManagerApproval, h.HandleApproval},
		{model.StepResponseSynthesis, h.Synthesize},
	}

	for _, s := range steps {
		key := string(s.step)
		err := b.graph.AddLambdaNode(key,
			compose.InvokableLambda(s.fn),
			compose.WithStatePreHandler(nodes.NewStepPreHandler(s.step)),
			compose.WithNodeName(key),
		)
		if err != nil {
			logx.Error().Err(err).Str("node", key).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", key, err)
		}
	}
	return nil
}

// addEdges creates the fixed connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeClassifyIntent},
		{nodes.NodeEntityExtraction, nodes.NodeAction},
		{nodes.NodeAction, nodes.NodeResponseSynthesis},
		{nodes.NodeFrustration, nodes.NodeResponseSynthesis},
		{nodes.NodeManagerApproval, nodes.NodeResponseSynthesis},
		{nodes.NodeResponseSynthesis, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches routes the classified turn to the step chosen by the router
func (b *GraphBuilder) addBranches() error {
	targets := map[string]bool{
		nodes.NodeEntityExtraction:  true,
		nodes.NodeAction:            true,
		nodes.NodeFrustration:       true,
		nodes.NodeManagerApproval:   true,
		nodes.NodeResponseSynthesis: true,
	}
	routeBranch := compose.NewGraphBranch(
		func(ctx context.Context, st *model.ConversationState) (string, error) {
			next := string(st.NextStep)
			if !targets[next] {
				logx.Session(st.SessionID).Warn().Str("step", next).Msg("unroutable step, synthesizing a reply")
				return nodes.NodeResponseSynthesis, nil
			}
			return next, nil
		},
		targets,
	)
	if err := b.graph.AddBranch(nodes.NodeClassifyIntent, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (Runnable, error) {
	// the longest path is classify, extraction, action, synthesis
	maxSteps := b.config.MaxRunSteps
	if maxSteps < 10 {
		maxSteps = 10
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps), compose.WithGraphName("support_turn"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
