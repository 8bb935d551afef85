package dialog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nimbusbot/nimbus/common/trace"
	"github.com/nimbusbot/nimbus/internal/nimbus/nlu"
	"github.com/nimbusbot/nimbus/internal/nimbus/session"
)

const msgTurnFailed = "The action could not be completed. Please try again."

// SessionStore is the persistence boundary for sessions.
type SessionStore interface {
	Load(ctx context.Context, channelID, userID string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
}

// TurnLog records one row per processed turn for operators.
type TurnLog interface {
	WriteTurn(ctx context.Context, turnID, traceID, channelID, userID, routedAs, result, errorMsg string) error
}

// Analyzer is the NLU collaborator boundary.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*nlu.Result, error)
}

// Orchestrator processes one inbound message at a time per (channel, user):
// load the session, resume a pending question or consult the NLU service,
// dispatch, persist, reply. Failures anywhere resolve to a reply and a
// resumable session, never a crash.
type Orchestrator struct {
	sessions SessionStore
	nlu      Analyzer
	router   *Router
	handlers *Handlers
	turns    TurnLog
	log      *slog.Logger
}

// NewOrchestrator wires the router table and returns a ready orchestrator.
func NewOrchestrator(sessions SessionStore, analyzer Analyzer, handlers *Handlers, turns TurnLog, log *slog.Logger) *Orchestrator {
	router := NewRouter()
	router.Register(IntentNone, handlers.HandleNone)
	router.Register(IntentGreeting, handlers.HandleGreeting)
	router.Register(IntentHelp, handlers.HandleHelp)
	router.Register(IntentClear, handlers.HandleClear)
	router.Register(IntentAct, handlers.HandleAct)

	return &Orchestrator{
		sessions: sessions,
		nlu:      analyzer,
		router:   router,
		handlers: handlers,
		turns:    turns,
		log:      log,
	}
}

// HandleTurn processes one inbound message and always produces a reply.
// The session is saved only when the handler succeeds, so a failed turn
// leaves the conversation exactly where it was.
func (o *Orchestrator) HandleTurn(ctx context.Context, channelID, userID, text string) *Reply {
	turnID := uuid.NewString()
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)

	log := o.log.With("trace_id", traceID, "channel_id", channelID, "user_id", userID)

	sess, err := o.sessions.Load(ctx, channelID, userID)
	if err != nil {
		log.Error("load session failed", "error", err)
		o.audit(ctx, turnID, traceID, channelID, userID, "load", "error", err)
		return textReply(msgTurnFailed)
	}

	turn := &Turn{Session: sess, Text: text}

	var routedAs string
	var reply *Reply
	var handlerErr error

	if cont := sess.Continuation(); cont != nil {
		routedAs = "resume:" + string(cont.Target)
		reply, handlerErr = o.handlers.Resume(ctx, turn, cont)
	} else {
		result, err := o.nlu.Analyze(ctx, text)
		if err != nil {
			log.Error("nlu analyze failed", "error", err)
			o.audit(ctx, turnID, traceID, channelID, userID, "analyze", "error", err)
			return textReply(msgTurnFailed)
		}
		turn.Result = result

		routedAs = IntentNone
		if top, ok := result.TopIntent(); ok && top.Name != "" {
			routedAs = strings.ToLower(top.Name)
		}
		reply, handlerErr = o.router.Route(ctx, routedAs, turn)
	}

	if handlerErr != nil {
		log.Error("turn failed", "routed_as", routedAs, "error", handlerErr)
		o.audit(ctx, turnID, traceID, channelID, userID, routedAs, "error", handlerErr)
		return textReply(msgTurnFailed)
	}

	if err := o.sessions.Save(ctx, sess); err != nil {
		log.Error("save session failed", "routed_as", routedAs, "error", err)
		o.audit(ctx, turnID, traceID, channelID, userID, routedAs, "error", err)
		return textReply(msgTurnFailed)
	}

	log.Info("turn processed", "turn_id", turnID, "routed_as", routedAs, "messages", len(reply.Messages))
	o.audit(ctx, turnID, traceID, channelID, userID, routedAs, "success", nil)
	return reply
}

// audit writes the turn log row. A failed write is logged and swallowed;
// it must not fail the turn.
func (o *Orchestrator) audit(ctx context.Context, turnID, traceID, channelID, userID, routedAs, result string, cause error) {
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	if err := o.turns.WriteTurn(ctx, turnID, traceID, channelID, userID, routedAs, result, errMsg); err != nil {
		o.log.Warn("turn log write failed", "trace_id", traceID, "error", err)
	}
}
