package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimbusbot/nimbus/internal/nimbus/azure"
)

// User-facing failure messages for the act flow. Missing operation and
// missing target are distinct on purpose so the user knows which half of
// the request to repeat.
const (
	msgNoAction = "I could not find an action in that request. Tell me what to do, for example \"list my resources\" or \"stop server1\"."
	msgNoTarget = "I know what you want to do, but not where. Name the resource to act on."
)

// Handlers holds the intent handlers and their dependencies.
type Handlers struct {
	cloud azure.Client
}

// NewHandlers creates a Handlers instance bound to a resource API client.
func NewHandlers(cloud azure.Client) *Handlers {
	return &Handlers{cloud: cloud}
}

// HandleNone echoes what the bot failed to understand.
func (h *Handlers) HandleNone(ctx context.Context, turn *Turn) (*Reply, error) {
	return textReply(fmt.Sprintf("Sorry, I did not understand %q. Say \"help\" to see what I can do.", turn.Text)), nil
}

// HandleGreeting replies to a greeting.
func (h *Handlers) HandleGreeting(ctx context.Context, turn *Turn) (*Reply, error) {
	return textReply("Hello! I am Nimbus. I can list your Azure resources, start and stop them, and create new environments. Say \"help\" for details."), nil
}

// HandleHelp lists the bot's capabilities.
func (h *Handlers) HandleHelp(ctx context.Context, turn *Turn) (*Reply, error) {
	help := `**Nimbus**

I manage Azure resources through conversation:

• "list my resource groups" - show the resource groups in your subscription
• "list all my resources" - show every resource
• "stop server1" / "start server1" - act on a resource from the last listing
• "create a new environment" - provision a web app step by step
• "clear" - forget your stored credentials

The first action will ask for your subscription ID, application ID and secret key.`
	return textReply(help), nil
}

// HandleClear wipes the credential slots. Cached listings survive.
func (h *Handlers) HandleClear(ctx context.Context, turn *Turn) (*Reply, error) {
	turn.Session.ClearCredentials()
	return textReply("Credentials cleared. I will ask for them again on your next action."), nil
}

// HandleAct processes a resource action. When the credential triple is
// incomplete the intent is parked in a continuation and the credential
// chain starts; otherwise the action dispatches immediately.
func (h *Handlers) HandleAct(ctx context.Context, turn *Turn) (*Reply, error) {
	if slot, missing := turn.Session.MissingCredential(); missing {
		return h.beginCredentialChain(turn, slot)
	}
	return h.dispatchAction(ctx, turn)
}

// dispatchAction picks the sub-flow for an act intent. The priority order
// is fixed: listing beats a concrete operation, which beats provisioning.
func (h *Handlers) dispatchAction(ctx context.Context, turn *Turn) (*Reply, error) {
	result := turn.Result

	if result.HasEntity(EntityAllResources) || result.HasEntity(EntityListing) {
		return h.runListing(ctx, turn, result.HasEntity(EntityAllResources))
	}

	op, ok := result.FirstEntity(EntityOperation)
	if !ok {
		return textReply(msgNoAction), nil
	}
	if canonicalOperation(op.Value) == opCreate {
		return h.beginWizard(ctx, turn)
	}
	return h.runOperation(ctx, turn, op.Value)
}

// runListing fetches either all resources or the resource groups, caches
// the result in the session and renders one bullet line per item.
func (h *Handlers) runListing(ctx context.Context, turn *Turn, allResources bool) (*Reply, error) {
	creds := turn.Session.Credentials()

	var kind string
	var items []azure.Item
	if allResources {
		resources, err := h.cloud.ListResources(ctx, creds)
		if err != nil {
			return nil, fmt.Errorf("list resources: %w", err)
		}
		turn.Session.SetResources(resources)
		kind = "Resource"
		for _, r := range resources {
			items = append(items, r)
		}
	} else {
		groups, err := h.cloud.ListResourceGroups(ctx, creds)
		if err != nil {
			return nil, fmt.Errorf("list resource groups: %w", err)
		}
		turn.Session.SetGroups(groups)
		kind = "ResourceGroup"
		for _, g := range groups {
			items = append(items, g)
		}
	}

	if len(items) == 0 {
		return textReply(fmt.Sprintf("I found no items of kind %s in your subscription.", kind)), nil
	}

	lines := make([]string, 0, len(items)+1)
	lines = append(lines, kind)
	for _, item := range items {
		lines = append(lines, "* "+item.Display())
	}
	return textReply(strings.Join(lines, "\n")), nil
}

// runOperation starts or stops a named resource from the cached listing.
func (h *Handlers) runOperation(ctx context.Context, turn *Turn, operationWord string) (*Reply, error) {
	op := canonicalOperation(operationWord)
	if op == "" {
		return textReply(fmt.Sprintf("I do not know how to %q a resource.", operationWord)), nil
	}

	target, ok := turn.Result.FirstEntity(EntityTarget)
	if !ok {
		return textReply(msgNoTarget), nil
	}
	name := ExtractTargetName(target.Value, operationWord)
	if name == "" {
		return textReply(msgNoTarget), nil
	}

	resource, ok := turn.Session.FindResource(name)
	if !ok {
		return textReply(fmt.Sprintf("I could not find %q among the resources I know about. Ask me to list all your resources first.", name)), nil
	}

	group, err := resource.ResourceGroupName()
	if err != nil {
		return textReply(fmt.Sprintf("I could not work out which resource group %s belongs to.", resource.Name)), nil
	}

	creds := turn.Session.Credentials()
	var done bool
	if strings.EqualFold(resource.ShortType(), "sites") {
		done, err = h.cloud.StartStopResource(ctx, creds, group, resource.Name, op)
	} else {
		if op == opStop {
			op = opDeallocate
		}
		done, err = h.cloud.StartDeallocateVM(ctx, creds, group, resource.Name, op)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, resource.Name, err)
	}
	if !done {
		return textReply("The operation was not completed."), nil
	}
	return textReply(fmt.Sprintf("Done: %s on %s.", op, resource.Name)), nil
}
