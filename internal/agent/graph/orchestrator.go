package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/replies"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
	"github.com/Chative-core-poc-v1/supportbot/internal/metrics"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

const (
	turnStatusOK       = "ok"
	turnStatusDegraded = "degraded"
	turnStatusError    = "error"
)

// OrchestratorConfig wires the orchestrator.
type OrchestratorConfig struct {
	Sessions  model.SessionStore
	Runnable  Runnable
	Callbacks []callbacks.Handler
	// MaxRetries bounds how often a conflicting save is re-applied.
	MaxRetries int
	Metrics    *metrics.Metrics
}

// Orchestrator runs one turn at a time per session: load, graph, save.
type Orchestrator struct {
	sessions   model.SessionStore
	runnable   Runnable
	handlers   []callbacks.Handler
	maxRetries int
	metrics    *metrics.Metrics

	// per-session mutexes held only around load and save
	locks sync.Map
}

func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is nil")
	}
	if cfg.Runnable == nil {
		return nil, fmt.Errorf("graph runnable is nil")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Orchestrator{
		sessions:   cfg.Sessions,
		runnable:   cfg.Runnable,
		handlers:   cfg.Callbacks,
		maxRetries: cfg.MaxRetries,
		metrics:    cfg.Metrics,
	}, nil
}

// ProcessTurn handles one user message. Only session load or save failures
// are returned as errors; every other failure still produces a reply.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error) {
	start := time.Now()
	id := strings.TrimSpace(in.SessionID)
	if id == "" {
		return nil, errx.WrapSession(errx.ErrInvalidSession)
	}
	in.SessionID = id
	log := logx.Session(id)

	sess, err := o.load(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to load session")
		o.metrics.RecordTurn("", turnStatusError, time.Since(start))
		return nil, errx.WrapSession(err)
	}

	st := model.NewConversationState(sess, in)
	if st.UserMessage == "" {
		return &model.TurnOutput{
			SessionID:        id,
			Reply:            replies.GenericReply(st.Language),
			Intent:           model.IntentOther,
			FrustrationCount: sess.FrustrationCount,
		}, nil
	}

	status := turnStatusOK
	out, err := o.runnable.Invoke(ctx, st, compose.WithCallbacks(o.handlers...))
	if err != nil || out == nil {
		log.Error().Err(err).Str("intent", st.Intent.String()).Msg("turn graph failed, replying with the generic fallback")
		out, status = st, turnStatusDegraded
	}
	if !out.Finalized() {
		out.Finalize(replies.GenericReply(out.Language))
	}

	saved, err := o.save(ctx, sess, out)
	if err != nil {
		log.Error().Err(err).Msg("failed to save session")
		o.metrics.RecordTurn(out.Intent.String(), turnStatusError, time.Since(start))
		return nil, errx.WrapSession(err)
	}

	o.metrics.RecordTurn(out.Intent.String(), status, time.Since(start))
	log.Info().
		Str("intent", out.Intent.String()).
		Int("frustration_count", saved.FrustrationCount).
		Int64("version", saved.Version).
		Dur("duration", time.Since(start)).
		Msg("turn processed")

	return &model.TurnOutput{
		SessionID:               id,
		Reply:                   out.Reply,
		Intent:                  out.Intent,
		Payload:                 out.ActionResult,
		QuickActions:            out.QuickActions,
		ManagerApprovalRequired: out.ManagerApprovalRequired,
		FrustrationCount:        saved.FrustrationCount,
		Steps:                   out.Steps,
		CostUSD:                 out.CostUSD,
	}, nil
}

// EndSession forgets the conversation history of a session.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return errx.WrapSession(errx.ErrInvalidSession)
	}
	unlock := o.lock(id)
	defer unlock()
	if err := o.sessions.Delete(ctx, id); err != nil {
		return errx.WrapSession(err)
	}
	return nil
}

func (o *Orchestrator) lock(id string) func() {
	v, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (o *Orchestrator) load(ctx context.Context, id string) (*model.Session, error) {
	unlock := o.lock(id)
	defer unlock()
	return o.sessions.Load(ctx, id)
}

// save persists the turn. On a version conflict it reloads the session and
// re-applies this turn's changes on top of it: the two new messages and, when
// the turn bumped it, one increment of the frustration counter.
func (o *Orchestrator) save(ctx context.Context, sess *model.Session, st *model.ConversationState) (*model.Session, error) {
	next := &model.Session{
		ID:               sess.ID,
		Messages:         st.Messages,
		FrustrationCount: max(sess.FrustrationCount, st.FrustrationCount),
		Version:          sess.Version,
	}

	for attempt := 0; ; attempt++ {
		unlock := o.lock(next.ID)
		err := o.sessions.Save(ctx, next)
		unlock()
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, errx.ErrSessionConflict) || attempt >= o.maxRetries {
			return nil, err
		}

		o.metrics.RecordSaveConflict()
		logx.Session(next.ID).Warn().Int("attempt", attempt+1).Msg("session changed during the turn, re-applying")

		fresh, err := o.load(ctx, next.ID)
		if err != nil {
			return nil, err
		}
		fresh.Messages = append(fresh.Messages, st.TurnMessages()...)
		if st.FrustrationBumped() {
			fresh.FrustrationCount++
		}
		next = fresh
	}
}
