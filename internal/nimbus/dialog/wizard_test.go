package dialog

import (
	"context"
	"strings"
	"testing"

	"github.com/nimbusbot/nimbus/internal/nimbus/nlu"
	"github.com/nimbusbot/nimbus/internal/nimbus/session"
)

func createTurn(t *testing.T, sess *session.Session) *Turn {
	t.Helper()
	return actTurn(t, sess, "create a new environment",
		nlu.Entity{Type: EntityOperation, Value: "create"})
}

func TestWizardFullFlow(t *testing.T) {
	cloud := newStubCloud()
	handlers := NewHandlers(cloud)
	sess := newCredSession(t)
	ctx := context.Background()

	reply, err := handlers.HandleAct(ctx, createTurn(t, sess))
	if err != nil {
		t.Fatalf("HandleAct: %v", err)
	}
	if reply.Expect != ExpectChoice {
		t.Fatalf("Expect = %v, want ExpectChoice", reply.Expect)
	}
	if len(reply.Choices) != 2 || reply.Choices[0] != "A" || reply.Choices[1] != "B" {
		t.Fatalf("choices = %v", reply.Choices)
	}

	// Pick the second group by number.
	reply, err = handlers.Resume(ctx, &Turn{Session: sess, Text: "2"}, sess.Continuation())
	if err != nil {
		t.Fatalf("resume group: %v", err)
	}
	if reply.Expect != ExpectText {
		t.Errorf("Expect = %v, want ExpectText for the name prompt", reply.Expect)
	}
	if !strings.Contains(joinedMessages(reply), "resource group B") {
		t.Errorf("choice ack missing: %q", reply.Messages)
	}
	if v, _ := sess.GetString(session.SlotWizardResourceGroup); v != "B" {
		t.Errorf("wizard slot = %q, want B", v)
	}

	// Name the environment.
	reply, err = handlers.Resume(ctx, &Turn{Session: sess, Text: "env1"}, sess.Continuation())
	if err != nil {
		t.Fatalf("resume name: %v", err)
	}
	if len(cloud.creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(cloud.creates))
	}
	if call := cloud.creates[0]; call.group != "B" || call.name != "env1" {
		t.Errorf("create call = %+v, want B/env1", call)
	}
	if !strings.Contains(reply.Messages[0], "https://env1.azurewebsites.net") {
		t.Errorf("address report missing: %q", reply.Messages[0])
	}
	if sess.Continuation() != nil {
		t.Error("continuation must be cleared after completion")
	}
	if _, ok := sess.GetString(session.SlotWizardResourceGroup); ok {
		t.Error("wizard slot must be cleared after completion")
	}
}

func TestWizardChoiceByName(t *testing.T) {
	handlers := NewHandlers(newStubCloud())
	sess := newCredSession(t)
	ctx := context.Background()

	if _, err := handlers.HandleAct(ctx, createTurn(t, sess)); err != nil {
		t.Fatalf("HandleAct: %v", err)
	}
	if _, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "a"}, sess.Continuation()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if v, _ := sess.GetString(session.SlotWizardResourceGroup); v != "A" {
		t.Errorf("wizard slot = %q, want A (case-insensitive name match)", v)
	}
}

func TestWizardInvalidChoiceExhaustsRetries(t *testing.T) {
	cloud := newStubCloud()
	handlers := NewHandlers(cloud)
	sess := newCredSession(t)
	ctx := context.Background()

	if _, err := handlers.HandleAct(ctx, createTurn(t, sess)); err != nil {
		t.Fatalf("HandleAct: %v", err)
	}

	// Two invalid answers re-prompt with the choice list.
	for i := 0; i < 2; i++ {
		reply, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "nope"}, sess.Continuation())
		if err != nil {
			t.Fatalf("resume %d: %v", i, err)
		}
		if reply.Expect != ExpectChoice {
			t.Errorf("attempt %d: Expect = %v, want ExpectChoice", i, reply.Expect)
		}
		if sess.Continuation() == nil {
			t.Fatalf("attempt %d: continuation dropped too early", i)
		}
	}

	// The third invalid answer terminates the wizard without creating.
	reply, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "7"}, sess.Continuation())
	if err != nil {
		t.Fatalf("final resume: %v", err)
	}
	if reply.Messages[0] != msgGaveUp {
		t.Errorf("message = %q, want terminal give-up", reply.Messages[0])
	}
	if len(cloud.creates) != 0 {
		t.Error("no resource may be created after retry exhaustion")
	}
	if sess.Continuation() != nil {
		t.Error("continuation must be cleared")
	}
}

func TestWizardInvalidNameThenValid(t *testing.T) {
	cloud := newStubCloud()
	handlers := NewHandlers(cloud)
	sess := newCredSession(t)
	ctx := context.Background()

	if _, err := handlers.HandleAct(ctx, createTurn(t, sess)); err != nil {
		t.Fatalf("HandleAct: %v", err)
	}
	if _, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "A"}, sess.Continuation()); err != nil {
		t.Fatalf("resume group: %v", err)
	}

	reply, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "has spaces in it"}, sess.Continuation())
	if err != nil {
		t.Fatalf("resume bad name: %v", err)
	}
	if len(cloud.creates) != 0 {
		t.Fatal("invalid name must not create")
	}
	if !strings.Contains(joinedMessages(reply), "name") {
		t.Errorf("re-prompt missing: %q", reply.Messages)
	}

	if _, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "env-2"}, sess.Continuation()); err != nil {
		t.Fatalf("resume good name: %v", err)
	}
	if len(cloud.creates) != 1 || cloud.creates[0].name != "env-2" {
		t.Errorf("creates = %+v", cloud.creates)
	}
}

func TestWizardComposesWithCredentialChain(t *testing.T) {
	cloud := newStubCloud()
	handlers := NewHandlers(cloud)
	sess := session.NewSession("!room", "@user")
	ctx := context.Background()

	// Provisioning requested before any credential is known.
	reply, err := handlers.HandleAct(ctx, createTurn(t, sess))
	if err != nil {
		t.Fatalf("HandleAct: %v", err)
	}
	if cont := sess.Continuation(); cont == nil || cont.Target != session.ResumeCredential {
		t.Fatalf("expected credential chain first, got %+v", sess.Continuation())
	}

	// Fill the triple; the final answer must flow straight into the wizard.
	for _, answer := range []string{"sub-1", "app-1", "key-1"} {
		reply, err = handlers.Resume(ctx, &Turn{Session: sess, Text: answer}, sess.Continuation())
		if err != nil {
			t.Fatalf("resume %q: %v", answer, err)
		}
	}

	if reply.Expect != ExpectChoice {
		t.Fatalf("Expect = %v, want the wizard's group choice", reply.Expect)
	}
	cont := sess.Continuation()
	if cont == nil || cont.Target != session.ResumeWizardGroup {
		t.Fatalf("continuation = %+v, want wizard group stage", cont)
	}

	// And the wizard itself still completes.
	if _, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "B"}, sess.Continuation()); err != nil {
		t.Fatalf("resume group: %v", err)
	}
	if _, err := handlers.Resume(ctx, &Turn{Session: sess, Text: "env3"}, sess.Continuation()); err != nil {
		t.Fatalf("resume name: %v", err)
	}
	if len(cloud.creates) != 1 || cloud.creates[0].group != "B" || cloud.creates[0].name != "env3" {
		t.Errorf("creates = %+v", cloud.creates)
	}
}
