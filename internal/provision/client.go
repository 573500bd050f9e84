// Package provision talks to the remote tunnel-provisioning service: the
// control plane that allocates and releases tunnels and their public
// hostname bindings.
package provision

import "context"

// Grant is the payload returned by a successful tunnel allocation.
type Grant struct {
	// ID is the opaque tunnel identity assigned by the service.
	ID string `json:"id"`
	// Token is the secret credential a tunnel-runner presents to
	// authenticate the tunnel connection. Never log it.
	Token string `json:"token"`
}

// Client is the provisioning-service boundary consumed by the orchestrator.
// Every method performs exactly one remote call; none of them retry.
type Client interface {
	// AllocateTunnel creates a named tunnel and returns its identity
	// and credential.
	AllocateTunnel(ctx context.Context, name string) (*Grant, error)

	// BindHostname publishes subdomain.domain as a DNS route for the
	// tunnel, pointing at the target service address.
	BindHostname(ctx context.Context, tunnelID, subdomain, domain, target string) error

	// ReleaseTunnel destroys the tunnel with the given identity.
	ReleaseTunnel(ctx context.Context, tunnelID string) error

	// ReleaseHostname removes the DNS binding for subdomain.domain.
	ReleaseHostname(ctx context.Context, subdomain, domain string) error
}
