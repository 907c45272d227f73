package cleaning

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// SESSION RESOLVER - Identity -> Profile, fail closed
// =============================================================================

// Identity is what the identity provider vouches for after verifying a token.
type Identity struct {
	Subject string
	Email   string
}

// SessionTerminator ends every session of a subject. It is invoked when a
// verified identity has no profile.
type SessionTerminator interface {
	Terminate(ctx context.Context, subject string) error
}

// SessionResolver maps a verified identity to its stored profile.
//
// There is no default role: a missing profile terminates the session and
// denies access.
type SessionResolver struct {
	profiles   *ProfileRepository
	terminator SessionTerminator
}

func NewSessionResolver(profiles *ProfileRepository, terminator SessionTerminator) *SessionResolver {
	return &SessionResolver{profiles: profiles, terminator: terminator}
}

// Resolve returns the profile of id. A missing or unusable profile yields
// ErrUnauthorized after the session is terminated; storage failures are
// returned as-is and also deny.
func (r *SessionResolver) Resolve(ctx context.Context, id Identity) (Profile, error) {
	if id.Subject == "" {
		return Profile{}, ErrUnauthorized
	}

	profile, err := r.profiles.Get(ctx, id.Subject)
	switch {
	case err == nil && profile.Role.Valid():
		if profile.Email == "" {
			profile.Email = id.Email
		}
		return profile, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Profile{}, err
	}

	if r.terminator != nil {
		if termErr := r.terminator.Terminate(ctx, id.Subject); termErr != nil {
			return Profile{}, fmt.Errorf("%w: terminate session: %v", ErrUnauthorized, termErr)
		}
	}
	return Profile{}, ErrUnauthorized
}
