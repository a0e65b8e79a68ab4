// Package identity resolves the requester identity that extraction records
// are keyed by. Three interchangeable strategies produce the same identity
// string: verified bearer token, client-claimed email, and anonymous
// generated id. Which one is trusted is a policy decision made in config,
// not here.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Strategy names accepted by FromConfig.
const (
	StrategyToken     = "token"
	StrategyEmail     = "email"
	StrategyAnonymous = "anonymous"
)

// Claim carries everything a request offers about who is asking.
// Any of the fields may be empty.
type Claim struct {
	// BearerToken is the credential from the Authorization header,
	// without the "Bearer " prefix.
	BearerToken string

	// Email is a client-claimed email address. Not verified.
	Email string

	// ProvidedID is a caller-supplied opaque identifier.
	ProvidedID string
}

// Resolver turns a Claim into the requester identity string.
type Resolver interface {
	Resolve(ctx context.Context, claim Claim) (string, error)
	Strategy() string
}

// Verifier checks a bearer token and returns the subject it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Config selects and parameterizes a resolver.
type Config struct {
	Strategy    string
	VerifierURL string
}

// FromConfig builds the resolver named by cfg.Strategy.
func FromConfig(cfg Config) (Resolver, error) {
	switch cfg.Strategy {
	case StrategyToken:
		if cfg.VerifierURL == "" {
			return nil, fmt.Errorf("token identity strategy requires a verifier URL")
		}
		return NewTokenResolver(NewHTTPVerifier(cfg.VerifierURL)), nil
	case StrategyEmail:
		return &EmailResolver{}, nil
	case StrategyAnonymous, "":
		return &AnonymousResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown identity strategy: %s", cfg.Strategy)
	}
}

// AnonymousResolver honors a caller-supplied id and otherwise mints a
// fresh UUID, so unauthenticated clients still get a stable key for the
// lifetime of the id they hold on to.
type AnonymousResolver struct{}

func (r *AnonymousResolver) Strategy() string { return StrategyAnonymous }

func (r *AnonymousResolver) Resolve(_ context.Context, claim Claim) (string, error) {
	if claim.ProvidedID != "" {
		return claim.ProvidedID, nil
	}
	return uuid.New().String(), nil
}

// EmailResolver keys records by the client-claimed email address. The
// claim is not verified; an empty claim degrades to anonymous behavior.
type EmailResolver struct {
	anon AnonymousResolver
}

func (r *EmailResolver) Strategy() string { return StrategyEmail }

func (r *EmailResolver) Resolve(ctx context.Context, claim Claim) (string, error) {
	email := strings.ToLower(strings.TrimSpace(claim.Email))
	if email == "" {
		return r.anon.Resolve(ctx, claim)
	}
	return email, nil
}

// TokenResolver verifies the bearer token and uses the verified subject
// as the identity. A missing or failing token is an error, not a
// fallback; the route layer decides how to answer.
type TokenResolver struct {
	verifier Verifier
}

// NewTokenResolver creates a resolver backed by the given verifier.
func NewTokenResolver(v Verifier) *TokenResolver {
	return &TokenResolver{verifier: v}
}

func (r *TokenResolver) Strategy() string { return StrategyToken }

func (r *TokenResolver) Resolve(ctx context.Context, claim Claim) (string, error) {
	if claim.BearerToken == "" {
		return "", fmt.Errorf("missing bearer token")
	}
	subject, err := r.verifier.Verify(ctx, claim.BearerToken)
	if err != nil {
		return "", fmt.Errorf("token verification failed: %w", err)
	}
	return subject, nil
}
