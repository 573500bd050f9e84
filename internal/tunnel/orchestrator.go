package tunnel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/btouchard/warren/internal/provision"
)

// Event represents a tunnel lifecycle change for notification dispatch.
type Event struct {
	Type     string // "tunnel.created", "tunnel.create_failed", "tunnel.deleted", "tunnel.delete_failed"
	TunnelID string
	Hostname string
	Message  string
}

const (
	EventCreated      = "tunnel.created"
	EventCreateFailed = "tunnel.create_failed"
	EventDeleted      = "tunnel.deleted"
	EventDeleteFailed = "tunnel.delete_failed"
)

// NotifyFunc is called when a tunnel lifecycle event occurs.
type NotifyFunc func(Event)

// Outcome is the result of one workflow invocation, carrying whatever the
// workflow established for presentation.
type Outcome struct {
	State    State
	Message  string
	TunnelID string
	Token    string
	Hostname string
}

// Orchestrator drives the two-step provisioning workflows against the
// remote service. It stops at the first required-step failure and leaves
// the session consistent with whatever succeeded. It never retries.
type Orchestrator struct {
	client   provision.Client
	domain   string
	target   string
	onNotify NotifyFunc
}

// NewOrchestrator creates an Orchestrator publishing tunnels under the
// fixed domain, routed to the fixed target service address.
func NewOrchestrator(client provision.Client, domain, target string) *Orchestrator {
	return &Orchestrator{
		client: client,
		domain: domain,
		target: target,
	}
}

// SetNotifyFunc sets the callback for tunnel lifecycle events.
func (o *Orchestrator) SetNotifyFunc(fn NotifyFunc) {
	o.onNotify = fn
}

// Create allocates a tunnel named name, then binds name.<domain> to it.
// A failure after allocation leaves the session holding the identity and
// credential of a tunnel with no hostname binding; this state is exposed
// for the operator to recover from, not rolled back.
func (o *Orchestrator) Create(ctx context.Context, sess *Session, name string) Outcome {
	if name == "" {
		return Outcome{State: StateRejected, Message: "tunnel name is required"}
	}
	if !sess.busy.CompareAndSwap(false, true) {
		return Outcome{State: StateRejected, Message: "another workflow is in progress"}
	}
	defer sess.busy.Store(false)

	wf := uuid.NewString()[:8]

	if discarded := sess.beginCreate(name); discarded != "" {
		// Overwrite semantics: the old reference is dropped without
		// remote cleanup. The operator must delete it explicitly.
		sess.appendTrace(fmt.Sprintf("[%s] discarding previous tunnel reference %s (not deleted remotely)", wf, discarded))
		slog.Warn("discarding previous tunnel reference", "workflow", wf, "tunnel_id", discarded)
	}

	sess.appendTrace(fmt.Sprintf("[%s] allocate tunnel name=%q", wf, name))
	grant, err := o.client.AllocateTunnel(ctx, name)
	if err != nil {
		sess.appendTrace(fmt.Sprintf("[%s] allocate failed: %v", wf, err))
		return o.fail(sess, EventCreateFailed, wf, Outcome{
			State:   StateFailure,
			Message: err.Error(),
		})
	}
	sess.setGrant(grant.ID, grant.Token)
	sess.appendTrace(fmt.Sprintf("[%s] allocate ok tunnel_id=%s credential received (elided)", wf, grant.ID))

	hostname := name + "." + o.domain
	sess.appendTrace(fmt.Sprintf("[%s] bind hostname %s -> %s", wf, hostname, o.target))
	if err := o.client.BindHostname(ctx, grant.ID, name, o.domain, o.target); err != nil {
		sess.appendTrace(fmt.Sprintf("[%s] bind failed: %v (tunnel %s exists without a hostname binding)", wf, err, grant.ID))
		return o.fail(sess, EventCreateFailed, wf, Outcome{
			State:    StateFailure,
			Message:  err.Error(),
			TunnelID: grant.ID,
			Token:    grant.Token,
		})
	}
	sess.setHostname(hostname)
	sess.appendTrace(fmt.Sprintf("[%s] bind ok hostname=%s", wf, hostname))

	sess.setStatus(Status{State: StateSuccess, Message: "tunnel ready"})
	slog.Info("tunnel created", "workflow", wf, "tunnel_id", grant.ID, "hostname", hostname)
	o.notify(Event{Type: EventCreated, TunnelID: grant.ID, Hostname: hostname})

	return Outcome{
		State:    StateSuccess,
		Message:  "tunnel ready",
		TunnelID: grant.ID,
		Token:    grant.Token,
		Hostname: hostname,
	}
}

// Delete releases the tunnel with the given identity, then the session's
// remembered hostname binding. The tunnel release must succeed; a failed
// hostname release is recorded in the trace and otherwise ignored, since
// the tunnel — the destructive, hard-to-recover part — is already gone
// and a leftover DNS record is idempotently fixable.
func (o *Orchestrator) Delete(ctx context.Context, sess *Session, id string) Outcome {
	if id == "" {
		return Outcome{State: StateRejected, Message: "no tunnel ID set"}
	}
	if !sess.busy.CompareAndSwap(false, true) {
		return Outcome{State: StateRejected, Message: "another workflow is in progress"}
	}
	defer sess.busy.Store(false)

	wf := uuid.NewString()[:8]
	sess.beginDelete()

	sess.appendTrace(fmt.Sprintf("[%s] release tunnel tunnel_id=%s", wf, id))
	if err := o.client.ReleaseTunnel(ctx, id); err != nil {
		sess.appendTrace(fmt.Sprintf("[%s] release failed: %v", wf, err))
		return o.fail(sess, EventDeleteFailed, wf, Outcome{
			State:    StateFailure,
			Message:  err.Error(),
			TunnelID: id,
		})
	}
	sess.appendTrace(fmt.Sprintf("[%s] release ok", wf))

	if subdomain := sess.Name(); subdomain != "" {
		sess.appendTrace(fmt.Sprintf("[%s] release hostname %s.%s", wf, subdomain, o.domain))
		if err := o.client.ReleaseHostname(ctx, subdomain, o.domain); err != nil {
			sess.appendTrace(fmt.Sprintf("[%s] release hostname failed: %v (ignored)", wf, err))
			slog.Warn("hostname binding release failed", "workflow", wf, "subdomain", subdomain, "error", err)
		} else {
			sess.appendTrace(fmt.Sprintf("[%s] release hostname ok", wf))
		}
	} else {
		sess.appendTrace(fmt.Sprintf("[%s] no hostname binding recorded, skipping DNS cleanup", wf))
	}

	hostname := sess.Hostname()
	sess.clearTunnel()
	sess.setStatus(Status{State: StateSuccess, Message: "tunnel deleted"})
	slog.Info("tunnel deleted", "workflow", wf, "tunnel_id", id)
	o.notify(Event{Type: EventDeleted, TunnelID: id, Hostname: hostname})

	return Outcome{State: StateSuccess, Message: "tunnel deleted", TunnelID: id}
}

func (o *Orchestrator) fail(sess *Session, eventType, wf string, out Outcome) Outcome {
	sess.setStatus(Status{State: out.State, Message: out.Message})
	slog.Warn("workflow failed", "workflow", wf, "event", eventType, "error", out.Message)
	o.notify(Event{Type: eventType, TunnelID: out.TunnelID, Message: out.Message})
	return out
}

func (o *Orchestrator) notify(e Event) {
	if o.onNotify != nil {
		o.onNotify(e)
	}
}
