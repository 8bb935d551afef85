package session

import "encoding/json"

// ResumeTarget names the code path that owns a pending continuation, so
// the orchestrator can route the user's next message back to it without
// consulting the language model.
type ResumeTarget string

const (
	// ResumeCredential resumes the credential chain: the answer fills the
	// slot named in Continuation.Slot.
	ResumeCredential ResumeTarget = "credential"

	// ResumeWizardGroup resumes the environment wizard at the resource
	// group choice.
	ResumeWizardGroup ResumeTarget = "wizard.group"

	// ResumeWizardName resumes the environment wizard at the name prompt.
	ResumeWizardName ResumeTarget = "wizard.name"
)

// Continuation captures a question the bot asked and has not yet had
// answered. The next inbound message from the same user is interpreted as
// the answer.
type Continuation struct {
	Target ResumeTarget `json:"target"`

	// Slot is the slot the answer will fill, for credential continuations.
	Slot string `json:"slot,omitempty"`

	// Question is re-sent verbatim when the answer is rejected and a
	// retry is allowed.
	Question string `json:"question"`

	// RetryMessage prefixes the re-asked question on a rejected answer.
	RetryMessage string `json:"retry_message,omitempty"`

	// AttemptsLeft counts down on each rejected answer. At zero the
	// continuation is abandoned and the conversation returns to idle.
	AttemptsLeft int `json:"attempts_left"`

	// Choices, when non-empty, restricts the answer to one of the listed
	// options, matched by name or by 1-based position.
	Choices []string `json:"choices,omitempty"`

	// Payload carries owner-specific state across the continuation, such
	// as the intent that triggered a credential chain.
	Payload json.RawMessage `json:"payload,omitempty"`
}
