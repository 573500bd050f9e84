package tunnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/warren/internal/provision"
	"github.com/btouchard/warren/internal/render"
)

// fakeClient records remote calls and fails on demand.
type fakeClient struct {
	grant          provision.Grant
	allocateErr    error
	bindErr        error
	releaseErr     error
	releaseHostErr error

	calls []string
}

func (f *fakeClient) AllocateTunnel(_ context.Context, name string) (*provision.Grant, error) {
	f.calls = append(f.calls, "allocate:"+name)
	if f.allocateErr != nil {
		return nil, f.allocateErr
	}
	g := f.grant
	return &g, nil
}

func (f *fakeClient) BindHostname(_ context.Context, tunnelID, subdomain, domain, target string) error {
	f.calls = append(f.calls, fmt.Sprintf("bind:%s:%s.%s->%s", tunnelID, subdomain, domain, target))
	return f.bindErr
}

func (f *fakeClient) ReleaseTunnel(_ context.Context, tunnelID string) error {
	f.calls = append(f.calls, "release:"+tunnelID)
	return f.releaseErr
}

func (f *fakeClient) ReleaseHostname(_ context.Context, subdomain, domain string) error {
	f.calls = append(f.calls, fmt.Sprintf("release-hostname:%s.%s", subdomain, domain))
	return f.releaseHostErr
}

func newTestOrchestrator(client provision.Client) *Orchestrator {
	return NewOrchestrator(client, "house-iq.cc", "http://127.0.0.1:8123")
}

func TestCreate_Success(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t1", Token: "secret123"}}
	o := newTestOrchestrator(client)
	sess := NewSession()

	out := o.Create(context.Background(), sess, "api-tunnel")

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, "t1", out.TunnelID)
	assert.Equal(t, "secret123", out.Token)
	assert.Equal(t, "api-tunnel.house-iq.cc", out.Hostname)

	assert.Equal(t, "t1", sess.TunnelID())
	assert.Equal(t, "secret123", sess.Token())
	assert.Equal(t, "api-tunnel.house-iq.cc", sess.Hostname())
	assert.Equal(t, StateSuccess, sess.Status().State)
	assert.False(t, sess.Busy())

	require.Len(t, client.calls, 2, "exactly two remote calls on full success")
	assert.Equal(t, "allocate:api-tunnel", client.calls[0])
	assert.Equal(t, "bind:t1:api-tunnel.house-iq.cc->http://127.0.0.1:8123", client.calls[1])
}

func TestCreate_RenderedConfigMatchesScenario(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t1", Token: "secret123"}}
	o := newTestOrchestrator(client)
	sess := NewSession()

	out := o.Create(context.Background(), sess, "api-tunnel")
	require.Equal(t, StateSuccess, out.State)

	r := render.New("house-iq.cc", "info")
	doc := string(r.Render(sess.Token(), sess.Hostname()))

	assert.Contains(t, doc, "secret123")
	assert.Contains(t, doc, "api-tunnel.house-iq.cc")
}

func TestCreate_AllocateFailureLeavesSessionEmpty(t *testing.T) {
	t.Parallel()

	client := &fakeClient{allocateErr: errors.New("account not authorized")}
	o := newTestOrchestrator(client)
	sess := NewSession()

	out := o.Create(context.Background(), sess, "api-tunnel")

	assert.Equal(t, StateFailure, out.State)
	assert.Equal(t, "account not authorized", out.Message)
	assert.Empty(t, sess.TunnelID())
	assert.Empty(t, sess.Token())
	assert.Empty(t, sess.Hostname())
	assert.Equal(t, StateFailure, sess.Status().State)

	require.Len(t, client.calls, 1, "exactly one remote call when allocation fails")
}

func TestCreate_BindFailureRetainsTunnelReference(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		grant:   provision.Grant{ID: "t2", Token: "tok-2"},
		bindErr: errors.New("quota exceeded"),
	}
	o := newTestOrchestrator(client)
	sess := NewSession()

	out := o.Create(context.Background(), sess, "x")

	assert.Equal(t, StateFailure, out.State)
	assert.Equal(t, "quota exceeded", out.Message)

	// Tunnel exists remotely without a hostname binding: deliberately
	// exposed, not rolled back.
	assert.Equal(t, "t2", sess.TunnelID())
	assert.Equal(t, "tok-2", sess.Token())
	assert.Empty(t, sess.Hostname())
	assert.Len(t, client.calls, 2)
}

func TestCreate_EmptyNameRejectedWithoutRemoteCalls(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	o := newTestOrchestrator(client)
	sess := NewSession()

	out := o.Create(context.Background(), sess, "")

	assert.Equal(t, StateRejected, out.State)
	assert.Empty(t, client.calls)
}

func TestCreate_RejectedWhileBusy(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	o := newTestOrchestrator(client)
	sess := NewSession()
	sess.busy.Store(true)

	out := o.Create(context.Background(), sess, "api-tunnel")

	assert.Equal(t, StateRejected, out.State)
	assert.Empty(t, client.calls, "busy rejection must not touch the remote service")
	assert.True(t, sess.Busy(), "rejection must not release the holder's busy flag")
}

func TestCreate_DiscardsPreviousReferenceWithoutRemoteCleanup(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t-new", Token: "tok-new"}}
	o := newTestOrchestrator(client)
	sess := NewSession()
	sess.setGrant("t-old", "tok-old")

	out := o.Create(context.Background(), sess, "fresh")

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, "t-new", sess.TunnelID())

	for _, call := range client.calls {
		assert.NotContains(t, call, "t-old", "previous tunnel must not be deleted remotely")
	}
	assert.True(t, traceContains(sess, "t-old"), "discarded reference should be recorded in the trace")
}

func TestCreate_TraceNeverContainsToken(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t1", Token: "super-secret-token"}}
	o := newTestOrchestrator(client)
	sess := NewSession()

	o.Create(context.Background(), sess, "api-tunnel")

	assert.False(t, traceContains(sess, "super-secret-token"), "credential must never appear in the diagnostic trace")
	assert.True(t, traceContains(sess, "elided"))
}

func TestDelete_Success(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t1", Token: "secret123"}}
	o := newTestOrchestrator(client)
	sess := NewSession()

	require.Equal(t, StateSuccess, o.Create(context.Background(), sess, "api-tunnel").State)

	out := o.Delete(context.Background(), sess, "t1")

	assert.Equal(t, StateSuccess, out.State)
	assert.Empty(t, sess.TunnelID())
	assert.Empty(t, sess.Token())
	assert.Empty(t, sess.Hostname())
	assert.Equal(t, StateSuccess, sess.Status().State)

	require.Len(t, client.calls, 4)
	assert.Equal(t, "release:t1", client.calls[2])
	assert.Equal(t, "release-hostname:api-tunnel.house-iq.cc", client.calls[3])
}

func TestDelete_ReleaseTunnelFailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t1", Token: "secret123"}}
	o := newTestOrchestrator(client)
	sess := NewSession()

	require.Equal(t, StateSuccess, o.Create(context.Background(), sess, "api-tunnel").State)
	client.releaseErr = errors.New("tunnel is in use")

	out := o.Delete(context.Background(), sess, "t1")

	assert.Equal(t, StateFailure, out.State)
	assert.Equal(t, "tunnel is in use", out.Message)

	// Tunnel deletion did not succeed, so nothing is cleared and no DNS
	// cleanup is attempted.
	assert.Equal(t, "t1", sess.TunnelID())
	assert.Equal(t, "secret123", sess.Token())
	assert.Equal(t, "api-tunnel.house-iq.cc", sess.Hostname())
	assert.NotContains(t, client.calls, "release-hostname:api-tunnel.house-iq.cc")
}

func TestDelete_HostnameReleaseFailureIsTolerated(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t1", Token: "secret123"}}
	o := newTestOrchestrator(client)
	sess := NewSession()

	require.Equal(t, StateSuccess, o.Create(context.Background(), sess, "api-tunnel").State)
	client.releaseHostErr = errors.New("record not found")

	out := o.Delete(context.Background(), sess, "t1")

	// The destructive step succeeded; a leftover DNS record does not
	// block reporting success.
	assert.Equal(t, StateSuccess, out.State)
	assert.Empty(t, sess.TunnelID())
	assert.Empty(t, sess.Token())
	assert.Empty(t, sess.Hostname())
	assert.True(t, traceContains(sess, "record not found"))
}

func TestDelete_EmptyIDRejectedWithoutRemoteCalls(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	o := newTestOrchestrator(client)
	sess := NewSession()

	out := o.Delete(context.Background(), sess, "")

	assert.Equal(t, StateRejected, out.State)
	assert.Equal(t, "no tunnel ID set", out.Message)
	assert.Empty(t, client.calls)
}

func TestDelete_RejectedWhileBusy(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	o := newTestOrchestrator(client)
	sess := NewSession()
	sess.busy.Store(true)

	out := o.Delete(context.Background(), sess, "t1")

	assert.Equal(t, StateRejected, out.State)
	assert.Empty(t, client.calls)
}

func TestDelete_NoRecordedNameSkipsHostnameRelease(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	o := newTestOrchestrator(client)
	sess := NewSession()

	out := o.Delete(context.Background(), sess, "t-external")

	assert.Equal(t, StateSuccess, out.State)
	require.Len(t, client.calls, 1)
	assert.Equal(t, "release:t-external", client.calls[0])
	assert.True(t, traceContains(sess, "skipping DNS cleanup"))
}

func TestOrchestrator_EmitsLifecycleEvents(t *testing.T) {
	t.Parallel()

	client := &fakeClient{grant: provision.Grant{ID: "t1", Token: "secret123"}}
	o := newTestOrchestrator(client)

	var events []Event
	o.SetNotifyFunc(func(e Event) { events = append(events, e) })

	sess := NewSession()
	o.Create(context.Background(), sess, "api-tunnel")
	o.Delete(context.Background(), sess, "t1")

	require.Len(t, events, 2)
	assert.Equal(t, EventCreated, events[0].Type)
	assert.Equal(t, "api-tunnel.house-iq.cc", events[0].Hostname)
	assert.Equal(t, EventDeleted, events[1].Type)
	assert.Equal(t, "t1", events[1].TunnelID)
}

func TestOrchestrator_EmitsFailureEvents(t *testing.T) {
	t.Parallel()

	client := &fakeClient{allocateErr: errors.New("boom")}
	o := newTestOrchestrator(client)

	var events []Event
	o.SetNotifyFunc(func(e Event) { events = append(events, e) })

	o.Create(context.Background(), NewSession(), "x")

	require.Len(t, events, 1)
	assert.Equal(t, EventCreateFailed, events[0].Type)
	assert.Equal(t, "boom", events[0].Message)
}

func traceContains(sess *Session, needle string) bool {
	for _, entry := range sess.Trace() {
		if strings.Contains(entry, needle) {
			return true
		}
	}
	return false
}
