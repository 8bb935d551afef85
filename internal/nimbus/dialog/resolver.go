package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nimbusbot/nimbus/internal/nimbus/nlu"
	"github.com/nimbusbot/nimbus/internal/nimbus/session"
)

// maxPromptRetries bounds consecutive invalid answers to one question
// before the flow gives up and returns to idle.
const maxPromptRetries = 3

const msgGaveUp = "I could not get a valid answer, so I stopped. Ask me again when you are ready."

// pendingAct is the act intent parked while the credential chain runs, so
// it can be re-dispatched once all three credentials are in.
type pendingAct struct {
	Text     string       `json:"text"`
	Entities []nlu.Entity `json:"entities,omitempty"`
}

func credentialQuestion(slot string) string {
	switch slot {
	case session.SlotSubscription:
		return "What is the subscription ID I should use?"
	case session.SlotApplicationID:
		return "What is the application ID?"
	default:
		return "What is the secret key?"
	}
}

func credentialAck(slot string) string {
	switch slot {
	case session.SlotSubscription:
		return "Subscription saved."
	case session.SlotApplicationID:
		return "Application ID saved."
	default:
		return "Secret key saved."
	}
}

// beginCredentialChain suspends the current act intent and asks for the
// first missing credential slot. The intent travels in the continuation
// payload.
func (h *Handlers) beginCredentialChain(turn *Turn, slot string) (*Reply, error) {
	payload, err := json.Marshal(pendingAct{Text: turn.Text, Entities: turn.Result.Entities})
	if err != nil {
		return nil, fmt.Errorf("encode pending intent: %w", err)
	}

	question := credentialQuestion(slot)
	turn.Session.SetContinuation(&session.Continuation{
		Target:       session.ResumeCredential,
		Slot:         slot,
		Question:     question,
		RetryMessage: "That does not look like a usable value.",
		AttemptsLeft: maxPromptRetries,
		Payload:      payload,
	})

	return &Reply{
		Messages: []string{"I need your Azure credentials before I can do that.", question},
		Expect:   ExpectText,
	}, nil
}

// resumeCredential consumes one answer in the credential chain. It fills
// exactly the slot the continuation was registered for, then either asks
// for the next unresolved slot or, when the triple is complete,
// re-dispatches the parked act intent.
func (h *Handlers) resumeCredential(ctx context.Context, turn *Turn, cont *session.Continuation) (*Reply, error) {
	answer := strings.TrimSpace(turn.Text)
	if answer == "" {
		return h.rejectAnswer(turn, cont, ExpectText)
	}

	if err := turn.Session.SetString(cont.Slot, answer); err != nil {
		return nil, fmt.Errorf("store credential slot: %w", err)
	}
	messages := []string{credentialAck(cont.Slot)}

	if next, missing := turn.Session.MissingCredential(); missing {
		question := credentialQuestion(next)
		turn.Session.SetContinuation(&session.Continuation{
			Target:       session.ResumeCredential,
			Slot:         next,
			Question:     question,
			RetryMessage: cont.RetryMessage,
			AttemptsLeft: maxPromptRetries,
			Payload:      cont.Payload,
		})
		messages = append(messages, question)
		return &Reply{Messages: messages, Expect: ExpectText}, nil
	}

	turn.Session.ClearContinuation()

	var parked pendingAct
	if err := json.Unmarshal(cont.Payload, &parked); err != nil {
		return nil, fmt.Errorf("decode pending intent: %w", err)
	}
	turn.Text = parked.Text
	turn.Result = &nlu.Result{Query: parked.Text, Entities: parked.Entities}

	reply, err := h.dispatchAction(ctx, turn)
	if err != nil {
		return nil, err
	}
	reply.Messages = append(messages, reply.Messages...)
	return reply, nil
}

// rejectAnswer handles an invalid answer to any pending question: re-ask
// while attempts remain, otherwise abandon the flow and return to idle.
// Wizard-scoped slots are wiped on abandonment.
func (h *Handlers) rejectAnswer(turn *Turn, cont *session.Continuation, expect AnswerShape) (*Reply, error) {
	cont.AttemptsLeft--
	if cont.AttemptsLeft <= 0 {
		turn.Session.ClearContinuation()
		turn.Session.ClearWizard()
		return textReply(msgGaveUp), nil
	}

	turn.Session.SetContinuation(cont)
	return &Reply{
		Messages: []string{cont.RetryMessage, cont.Question},
		Expect:   expect,
		Choices:  cont.Choices,
	}, nil
}

// Resume routes an inbound message to the owner of the pending
// continuation instead of treating it as a fresh command.
func (h *Handlers) Resume(ctx context.Context, turn *Turn, cont *session.Continuation) (*Reply, error) {
	switch cont.Target {
	case session.ResumeCredential:
		return h.resumeCredential(ctx, turn, cont)
	case session.ResumeWizardGroup:
		return h.resumeWizardGroup(ctx, turn, cont)
	case session.ResumeWizardName:
		return h.resumeWizardName(ctx, turn, cont)
	default:
		turn.Session.ClearContinuation()
		turn.Session.ClearWizard()
		return textReply("I lost track of what I was asking. Please repeat your request."), nil
	}
}
