// Package identity resolves inbound request credentials into a capability
// context: which of the four chat modes applies (admin, developer, qa, user),
// which downstream credential backs marketplace calls, and whether the caller
// may use privileged tools.
package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAdminToken indicates the presented admin token does not match
	// the configured admin secret.
	ErrInvalidAdminToken = errors.New("invalid admin token")

	// ErrInvalidDeveloperToken indicates the presented developer token does not
	// match the configured developer secret.
	ErrInvalidDeveloperToken = errors.New("invalid developer token")
)

// Mode is the capability class governing a conversation: it selects the
// system prompt and the downstream credential for every turn.
type Mode int

const (
	ModeUser Mode = iota
	ModeAdmin
	ModeDeveloper
	ModeQA
)

// String returns the wire representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAdmin:
		return "admin"
	case ModeDeveloper:
		return "developer"
	case ModeQA:
		return "qa"
	default:
		return "user"
	}
}

// ParseMode converts a wire mode string back into a Mode.
// Unknown strings resolve to ModeUser.
func ParseMode(s string) Mode {
	switch s {
	case "admin":
		return ModeAdmin
	case "developer":
		return ModeDeveloper
	case "qa":
		return ModeQA
	default:
		return ModeUser
	}
}

// Context is the per-request resolved capability bundle. It is constructed
// once by a Resolver, never cached, and immutable after construction.
type Context struct {
	Mode Mode

	// Credential is the bearer token used for downstream marketplace calls.
	// Empty for qa and anonymous callers.
	Credential string

	// Privileged gates tools that expose cross-user data.
	Privileged bool
}

// Signals carries the raw authentication inputs of one inbound request.
type Signals struct {
	AdminToken     string // X-Admin-Token
	DeveloperToken string // X-Developer-Token
	QAFlag         string // X-QA-Mode ("true" or "1" activates)
	BearerToken    string // Authorization: Bearer <token>, stripped of prefix
}

// Resolver maps request signals to a capability context.
type Resolver struct {
	adminSecret     string
	developerSecret string
	serviceToken    string
}

// NewResolver creates a resolver.
// developerSecret may equal adminSecret when no dedicated developer token is
// configured. serviceToken is the shared downstream credential used by
// admin and developer callers.
func NewResolver(adminSecret, developerSecret, serviceToken string) *Resolver {
	return &Resolver{
		adminSecret:     adminSecret,
		developerSecret: developerSecret,
		serviceToken:    serviceToken,
	}
}

// Resolve produces exactly one capability context for the given signals.
//
// Precedence, first match wins:
//  1. developer token (must match the developer secret)
//  2. admin token (must match the admin secret)
//  3. qa flag ("true" or "1")
//  4. bearer user token (used verbatim downstream)
//  5. anonymous user (no credential; identity-requiring tools degrade)
//
// Resolve is synchronous and side-effect-free; a mismatched admin or
// developer token rejects regardless of other signals present.
func (r *Resolver) Resolve(s Signals) (Context, error) {
	if s.DeveloperToken != "" {
		if r.developerSecret == "" || s.DeveloperToken != r.developerSecret {
			return Context{}, fmt.Errorf("resolving identity: %w", ErrInvalidDeveloperToken)
		}
		return Context{Mode: ModeDeveloper, Credential: r.serviceToken, Privileged: true}, nil
	}

	if s.AdminToken != "" {
		if r.adminSecret == "" || s.AdminToken != r.adminSecret {
			return Context{}, fmt.Errorf("resolving identity: %w", ErrInvalidAdminToken)
		}
		return Context{Mode: ModeAdmin, Credential: r.serviceToken, Privileged: true}, nil
	}

	if s.QAFlag == "true" || s.QAFlag == "1" {
		return Context{Mode: ModeQA}, nil
	}

	if s.BearerToken != "" {
		return Context{Mode: ModeUser, Credential: s.BearerToken}, nil
	}

	// Anonymous/guest: limited access, no user-specific data.
	return Context{Mode: ModeUser}, nil
}
