package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nimbusbot/nimbus/internal/nimbus/session"
)

// The environment wizard: pick a resource group, pick a name, create a
// web app. The chosen group survives the two suspension points in a
// wizard-scoped session slot.

const (
	wizardGroupQuestion = "Which resource group should the new environment live in?"
	wizardNameQuestion  = "What name should the new environment have? One word, letters, digits and hyphens."
)

// beginWizard fetches a fresh resource group list and asks the user to
// choose from it.
func (h *Handlers) beginWizard(ctx context.Context, turn *Turn) (*Reply, error) {
	groups, err := h.cloud.ListResourceGroups(ctx, turn.Session.Credentials())
	if err != nil {
		return nil, fmt.Errorf("list resource groups: %w", err)
	}
	if len(groups) == 0 {
		return textReply("Your subscription has no resource groups, so there is nowhere to create the environment."), nil
	}
	turn.Session.SetGroups(groups)

	choices := make([]string, len(groups))
	for i, g := range groups {
		choices[i] = g.Name
	}

	turn.Session.SetContinuation(&session.Continuation{
		Target:       session.ResumeWizardGroup,
		Question:     wizardGroupQuestion,
		RetryMessage: "That is not one of the listed resource groups.",
		AttemptsLeft: maxPromptRetries,
		Choices:      choices,
	})

	return &Reply{
		Messages: []string{wizardGroupQuestion},
		Expect:   ExpectChoice,
		Choices:  choices,
	}, nil
}

// resumeWizardGroup consumes the resource group choice and moves on to the
// name prompt.
func (h *Handlers) resumeWizardGroup(ctx context.Context, turn *Turn, cont *session.Continuation) (*Reply, error) {
	choice, ok := matchChoice(turn.Text, cont.Choices)
	if !ok {
		return h.rejectAnswer(turn, cont, ExpectChoice)
	}

	if err := turn.Session.SetString(session.SlotWizardResourceGroup, choice); err != nil {
		return nil, fmt.Errorf("store wizard slot: %w", err)
	}
	turn.Session.SetContinuation(&session.Continuation{
		Target:       session.ResumeWizardName,
		Question:     wizardNameQuestion,
		RetryMessage: "That is not a usable name.",
		AttemptsLeft: maxPromptRetries,
	})

	return &Reply{
		Messages: []string{fmt.Sprintf("Using resource group %s.", choice), wizardNameQuestion},
		Expect:   ExpectText,
	}, nil
}

// resumeWizardName consumes the environment name and performs the create.
func (h *Handlers) resumeWizardName(ctx context.Context, turn *Turn, cont *session.Continuation) (*Reply, error) {
	name := strings.TrimSpace(turn.Text)
	if !validEnvironmentName(name) {
		return h.rejectAnswer(turn, cont, ExpectText)
	}

	group, ok := turn.Session.GetString(session.SlotWizardResourceGroup)
	if !ok {
		turn.Session.ClearContinuation()
		turn.Session.ClearWizard()
		return textReply("I lost the resource group you chose. Please start over."), nil
	}

	done, err := h.cloud.CreateWebApp(ctx, turn.Session.Credentials(), group, name)
	if err != nil {
		return nil, fmt.Errorf("create web app %s: %w", name, err)
	}

	turn.Session.ClearContinuation()
	turn.Session.ClearWizard()

	if !done {
		return textReply("The environment was not created."), nil
	}
	return textReply(fmt.Sprintf(
		"Environment %s created in %s. It will be reachable at https://%s.azurewebsites.net once deployment finishes.",
		name, group, name)), nil
}

// matchChoice resolves an answer against a choice list, accepting either
// the choice text (case-insensitive) or its 1-based position.
func matchChoice(answer string, choices []string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(choices) {
			return choices[n-1], true
		}
		return "", false
	}
	for _, c := range choices {
		if strings.EqualFold(c, answer) {
			return c, true
		}
	}
	return "", false
}

// validEnvironmentName accepts DNS-label-ish names: the environment name
// becomes the azurewebsites.net host.
func validEnvironmentName(name string) bool {
	if name == "" || len(name) > 60 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
