package dialog

import (
	"context"
	"strings"

	"github.com/nimbusbot/nimbus/internal/nimbus/nlu"
	"github.com/nimbusbot/nimbus/internal/nimbus/session"
)

// Intent names recognized by the router. The NLU model is trained on these;
// anything else falls back to IntentNone.
const (
	IntentNone     = "none"
	IntentGreeting = "greeting"
	IntentHelp     = "help"
	IntentClear    = "clear"
	IntentAct      = "act"
)

// Turn is the mutable state of one inbound message being processed. The
// handlers read the NLU result and mutate the session; the orchestrator
// persists the session afterwards.
type Turn struct {
	Session *session.Session
	Result  *nlu.Result
	Text    string
}

// HandlerFunc processes one routed turn. A non-nil error means the turn
// failed and the session must not be saved.
type HandlerFunc func(ctx context.Context, turn *Turn) (*Reply, error)

// Router dispatches the recognized top intent to its handler. Matching is
// case-insensitive and exact; unknown intents use the none handler.
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter creates an empty intent router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Register registers a handler for an intent name.
func (r *Router) Register(intent string, handler HandlerFunc) {
	r.handlers[strings.ToLower(intent)] = handler
}

// Route dispatches the turn to the handler for intent. Exactly one handler
// runs per turn.
func (r *Router) Route(ctx context.Context, intent string, turn *Turn) (*Reply, error) {
	handler, ok := r.handlers[strings.ToLower(intent)]
	if !ok {
		handler = r.handlers[IntentNone]
	}
	return handler(ctx, turn)
}
