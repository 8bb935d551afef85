// Package session holds per-user conversation state: credential slots,
// cached Azure listings, and the pending continuation when the bot is
// waiting for an answer. Sessions are keyed by (channel, user) and
// persisted through the SQLite store.
package session

import (
	"errors"
	"strings"

	"github.com/nimbusbot/nimbus/internal/nimbus/azure"
)

// Slot names. The credential slots hold values the user supplies once and
// the bot reuses on every Azure call. Wizard slots are transient and are
// wiped when the wizard completes or is abandoned.
const (
	SlotSubscription  = "SUBSCRIPTION"
	SlotApplicationID = "APPLICATION_ID"
	SlotSecretKey     = "SECRET_KEY"

	SlotResources      = "RESOURCES"
	SlotResourceGroups = "RESOURCE_GROUPS"

	// WizardPrefix namespaces the slots owned by the environment wizard.
	WizardPrefix            = "CREATE_ENV:"
	SlotWizardResourceGroup = WizardPrefix + "RESOURCE_GROUP"
)

// CredentialSlots lists the credential slots in the order they are
// requested from the user. The resolver walks this slice; do not reorder.
var CredentialSlots = []string{SlotSubscription, SlotApplicationID, SlotSecretKey}

// ErrUnknownSlot is returned when a write targets a slot that is not a
// registered string slot. The listing caches have typed accessors and
// cannot be written through SetString.
var ErrUnknownSlot = errors.New("session: unknown or non-string slot")

// Session is the conversation state for one user in one channel. It is not
// safe for concurrent use; the orchestrator processes one turn at a time
// per (channel, user) pair.
type Session struct {
	ChannelID string
	UserID    string

	values       map[string]string
	resources    []azure.Resource
	groups       []azure.ResourceGroup
	continuation *Continuation
}

// NewSession returns an empty session for the given channel and user.
func NewSession(channelID, userID string) *Session {
	return &Session{
		ChannelID: channelID,
		UserID:    userID,
		values:    make(map[string]string),
	}
}

func isStringSlot(name string) bool {
	switch name {
	case SlotSubscription, SlotApplicationID, SlotSecretKey:
		return true
	}
	return strings.HasPrefix(name, WizardPrefix)
}

// GetString returns the value of a string slot.
func (s *Session) GetString(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// SetString stores a value in a registered string slot. Writing to the
// listing caches or to an unregistered name returns ErrUnknownSlot.
func (s *Session) SetString(name, value string) error {
	if !isStringSlot(name) {
		return ErrUnknownSlot
	}
	s.values[name] = value
	return nil
}

// ClearString removes a single string slot. Clearing an absent slot is a
// no-op.
func (s *Session) ClearString(name string) {
	delete(s.values, name)
}

// ClearCredentials removes the three credential slots and nothing else.
func (s *Session) ClearCredentials() {
	for _, name := range CredentialSlots {
		delete(s.values, name)
	}
}

// ClearWizard removes every wizard-owned slot.
func (s *Session) ClearWizard() {
	for name := range s.values {
		if strings.HasPrefix(name, WizardPrefix) {
			delete(s.values, name)
		}
	}
}

// Credentials assembles the Azure credentials from the credential slots.
// Call Complete on the result to check whether all three are present.
func (s *Session) Credentials() azure.Credentials {
	return azure.Credentials{
		SubscriptionID: s.values[SlotSubscription],
		ApplicationID:  s.values[SlotApplicationID],
		SecretKey:      s.values[SlotSecretKey],
	}
}

// MissingCredential returns the first unfilled credential slot in request
// order, or false when all three are present.
func (s *Session) MissingCredential() (string, bool) {
	for _, name := range CredentialSlots {
		if _, ok := s.values[name]; !ok {
			return name, true
		}
	}
	return "", false
}

// Resources returns the cached resource listing from the last successful
// list operation, or nil when nothing has been listed yet.
func (s *Session) Resources() []azure.Resource {
	return s.resources
}

// SetResources replaces the cached resource listing.
func (s *Session) SetResources(items []azure.Resource) {
	s.resources = items
}

// Groups returns the cached resource group listing.
func (s *Session) Groups() []azure.ResourceGroup {
	return s.groups
}

// SetGroups replaces the cached resource group listing.
func (s *Session) SetGroups(items []azure.ResourceGroup) {
	s.groups = items
}

// FindResource looks up a cached resource by name, case-insensitively.
func (s *Session) FindResource(name string) (azure.Resource, bool) {
	for _, r := range s.resources {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return azure.Resource{}, false
}

// Continuation returns the pending continuation, or nil when the bot is
// not waiting for an answer.
func (s *Session) Continuation() *Continuation {
	return s.continuation
}

// SetContinuation records what the bot is waiting for. A new continuation
// supersedes any previous one; only the latest question is live.
func (s *Session) SetContinuation(c *Continuation) {
	s.continuation = c
}

// ClearContinuation drops the pending continuation.
func (s *Session) ClearContinuation() {
	s.continuation = nil
}
