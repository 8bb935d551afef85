// Package nlu provides the natural-language-understanding layer for Nimbus.
//
// The NLU layer sits between the raw chat message and the intent router.
// Its sole responsibility is translation: send the user's sentence to the
// external NLU service and return a structured Result (ranked intents plus
// typed entities) that the dialog package can dispatch on. It never decides
// what to do with a message; that is the orchestrator's job.
package nlu

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrUnexpectedShape is returned by a Provider when the NLU service answers
// with a payload that does not match the documented response schema. Callers
// should treat this as a collaborator failure for the turn, not as user error.
var ErrUnexpectedShape = errors.New("nlu: unexpected response shape from service")

// Intent is one classified purpose for the utterance, with its confidence.
type Intent struct {
	Name  string
	Score float64
}

// Entity is one typed fragment extracted from the utterance.
type Entity struct {
	Type  string
	Value string
}

// Result is the structured output of one analysis call.
type Result struct {
	// Query is the original text as echoed by the service.
	Query string
	// Intents is ordered by descending score; Intents[0] is "the" intent.
	Intents []Intent
	// Entities holds every extracted entity, in service order.
	Entities []Entity
}

// TopIntent returns the highest-scoring intent, or false when the service
// recognized nothing.
func (r *Result) TopIntent() (Intent, bool) {
	if len(r.Intents) == 0 {
		return Intent{}, false
	}
	return r.Intents[0], true
}

// FirstEntity returns the first entity whose type matches typ
// case-insensitively.
func (r *Result) FirstEntity(typ string) (Entity, bool) {
	for _, e := range r.Entities {
		if strings.EqualFold(strings.TrimSpace(e.Type), typ) {
			return e, true
		}
	}
	return Entity{}, false
}

// HasEntity reports whether any entity of the given type is present.
func (r *Result) HasEntity(typ string) bool {
	_, ok := r.FirstEntity(typ)
	return ok
}

// sortIntents orders intents by descending score, keeping service order for
// equal scores.
func sortIntents(intents []Intent) {
	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].Score > intents[j].Score
	})
}

// Provider analyzes free-form user messages.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// A network or service failure is returned as a descriptive error; the
// orchestrator surfaces it as a processing failure for that turn only.
type Provider interface {
	// Analyze sends text to the NLU service and returns the ranked intents
	// and extracted entities.
	Analyze(ctx context.Context, text string) (*Result, error)
}
