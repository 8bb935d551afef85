// Package dialog implements the conversation state machine: routing
// recognized intents to handlers, filling missing slots through follow-up
// questions, and resuming suspended flows when answers arrive.
package dialog

// AnswerShape hints to the hosting layer what kind of answer the last
// message expects, so it can render a picker for choices.
type AnswerShape int

const (
	// ExpectNone means the turn is terminal; the next message starts fresh.
	ExpectNone AnswerShape = iota

	// ExpectText means the next message is a free-text answer.
	ExpectText

	// ExpectChoice means the next message should pick one of Choices,
	// by name or by 1-based position.
	ExpectChoice
)

// Reply is the ordered set of outbound messages produced by one turn.
type Reply struct {
	Messages []string
	Expect   AnswerShape
	Choices  []string
}

func textReply(messages ...string) *Reply {
	return &Reply{Messages: messages, Expect: ExpectNone}
}
