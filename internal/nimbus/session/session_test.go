package session_test

import (
	"errors"
	"testing"

	"github.com/nimbusbot/nimbus/internal/nimbus/azure"
	"github.com/nimbusbot/nimbus/internal/nimbus/session"
)

func TestSetStringRejectsNonStringSlots(t *testing.T) {
	sess := session.NewSession("!room", "@user")

	if err := sess.SetString(session.SlotSubscription, "sub"); err != nil {
		t.Fatalf("credential slot write failed: %v", err)
	}
	if err := sess.SetString(session.SlotWizardResourceGroup, "rg1"); err != nil {
		t.Fatalf("wizard slot write failed: %v", err)
	}

	for _, slot := range []string{session.SlotResources, session.SlotResourceGroups, "BOGUS"} {
		if err := sess.SetString(slot, "x"); !errors.Is(err, session.ErrUnknownSlot) {
			t.Errorf("SetString(%q) = %v, want ErrUnknownSlot", slot, err)
		}
	}
}

func TestMissingCredentialOrder(t *testing.T) {
	sess := session.NewSession("!room", "@user")

	slot, missing := sess.MissingCredential()
	if !missing || slot != session.SlotSubscription {
		t.Fatalf("empty session: got %q, want SUBSCRIPTION first", slot)
	}

	// Filling a later slot first must not change which slot is asked next.
	sess.SetString(session.SlotSecretKey, "s3cret")
	slot, missing = sess.MissingCredential()
	if !missing || slot != session.SlotSubscription {
		t.Fatalf("got %q, want SUBSCRIPTION", slot)
	}

	sess.SetString(session.SlotSubscription, "sub")
	slot, missing = sess.MissingCredential()
	if !missing || slot != session.SlotApplicationID {
		t.Fatalf("got %q, want APPLICATION_ID", slot)
	}

	sess.SetString(session.SlotApplicationID, "app")
	if _, missing = sess.MissingCredential(); missing {
		t.Fatal("all slots filled, nothing should be missing")
	}
	if !sess.Credentials().Complete() {
		t.Fatal("credentials should be complete")
	}
}

func TestClearCredentialsLeavesCaches(t *testing.T) {
	sess := session.NewSession("!room", "@user")
	sess.SetString(session.SlotSubscription, "sub")
	sess.SetString(session.SlotApplicationID, "app")
	sess.SetString(session.SlotSecretKey, "key")
	sess.SetResources([]azure.Resource{{ID: "1", Name: "server1"}})
	sess.SetGroups([]azure.ResourceGroup{{ID: "1", Name: "rg1"}})

	sess.ClearCredentials()

	for _, slot := range session.CredentialSlots {
		if _, ok := sess.GetString(slot); ok {
			t.Errorf("slot %s survived ClearCredentials", slot)
		}
	}
	if len(sess.Resources()) != 1 {
		t.Error("RESOURCES cache must survive ClearCredentials")
	}
	if len(sess.Groups()) != 1 {
		t.Error("RESOURCE_GROUPS cache must survive ClearCredentials")
	}
}

func TestClearWizard(t *testing.T) {
	sess := session.NewSession("!room", "@user")
	sess.SetString(session.SlotSubscription, "sub")
	sess.SetString(session.SlotWizardResourceGroup, "rg1")

	sess.ClearWizard()

	if _, ok := sess.GetString(session.SlotWizardResourceGroup); ok {
		t.Error("wizard slot survived ClearWizard")
	}
	if _, ok := sess.GetString(session.SlotSubscription); !ok {
		t.Error("credential slot must survive ClearWizard")
	}
}

func TestFindResourceCaseInsensitive(t *testing.T) {
	sess := session.NewSession("!room", "@user")
	sess.SetResources([]azure.Resource{
		{ID: "1", Name: "ServidorX", RawType: "Microsoft.Compute/virtualMachines"},
	})

	if _, ok := sess.FindResource("servidorx"); !ok {
		t.Error("lookup must be case-insensitive")
	}
	if _, ok := sess.FindResource("servidory"); ok {
		t.Error("unexpected match")
	}
}

func TestContinuationSupersede(t *testing.T) {
	sess := session.NewSession("!room", "@user")

	sess.SetContinuation(&session.Continuation{Target: session.ResumeCredential, Slot: session.SlotSubscription})
	sess.SetContinuation(&session.Continuation{Target: session.ResumeWizardGroup})

	cont := sess.Continuation()
	if cont == nil || cont.Target != session.ResumeWizardGroup {
		t.Fatalf("latest continuation must win, got %+v", cont)
	}

	sess.ClearContinuation()
	if sess.Continuation() != nil {
		t.Error("continuation survived clear")
	}
}
