// Package tunnel owns the create/delete provisioning workflows and the
// session state they mutate.
package tunnel

import (
	"sync"
	"sync/atomic"
)

// State classifies the outcome of the last workflow.
type State string

const (
	// StateSuccess means every required remote step completed.
	StateSuccess State = "success"
	// StateFailure means a remote step was declined or unreachable.
	StateFailure State = "failure"
	// StateRejected means a precondition failed; no remote call was made.
	StateRejected State = "rejected"
)

// Status is the recorded result of the last workflow run on a session.
type Status struct {
	State   State
	Message string
}

// Session is the mutable state a caller holds across workflows: the
// tracked tunnel's identity, credential and hostname binding, the last
// status, and an append-only diagnostic trace. It is mutated only by the
// Orchestrator; the busy flag is the sole concurrency guard and rejects
// (never queues) a second in-flight workflow.
type Session struct {
	busy atomic.Bool

	mu       sync.RWMutex
	name     string
	tunnelID string
	token    string
	hostname string
	status   Status
	trace    []string
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Name returns the most recently requested tunnel name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// TunnelID returns the tracked tunnel identity, empty if none.
func (s *Session) TunnelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tunnelID
}

// Token returns the tunnel credential, empty if none. Callers must not
// write it to logs; it belongs only in the rendered runner config.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Hostname returns the confirmed hostname binding, empty if none.
func (s *Session) Hostname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostname
}

// Status returns the result of the last workflow.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Busy reports whether a workflow is currently in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Trace returns a copy of the diagnostic trace.
func (s *Session) Trace() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.trace))
	copy(out, s.trace)
	return out
}

// SetName seeds the requested tunnel name on a fresh session, so a
// one-shot delete can clean up the matching hostname binding. It must
// not be called while a workflow is in flight.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// beginCreate resets the session for a fresh create workflow: status,
// trace, and any previous tunnel reference are discarded (the previous
// tunnel is NOT deleted remotely). Returns the discarded identity so the
// workflow can record it.
func (s *Session) beginCreate(name string) (discardedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	discardedID = s.tunnelID
	s.name = name
	s.tunnelID = ""
	s.token = ""
	s.hostname = ""
	s.status = Status{}
	s.trace = nil
	return discardedID
}

// beginDelete resets status and trace only; the tunnel reference is kept
// until the remote release succeeds.
func (s *Session) beginDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{}
	s.trace = nil
}

func (s *Session) setGrant(tunnelID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tunnelID = tunnelID
	s.token = token
}

func (s *Session) setHostname(hostname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hostname = hostname
}

func (s *Session) clearTunnel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tunnelID = ""
	s.token = ""
	s.hostname = ""
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

func (s *Session) appendTrace(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, entry)
}
