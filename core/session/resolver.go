package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/user"
)

// ProfileGetter returns a profile joined with its faculty and program names.
type ProfileGetter interface {
	GetProfile(ctx context.Context, id string) (user.Profile, error)
}

// Resolver joins the authenticated identity with its profile.
type Resolver struct {
	auth     Authenticator
	profiles ProfileGetter
	logger   core.Logger
}

func NewResolver(auth Authenticator, profiles ProfileGetter, logger core.Logger) *Resolver {
	return &Resolver{auth: auth, profiles: profiles, logger: logger}
}

// Resolve returns the CurrentUser of accessToken, or nil for an anonymous client.
// Only I/O failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (*user.CurrentUser, error) {
	if accessToken == "" {
		return nil, nil
	}
	identity, err := r.auth.GetUser(ctx, accessToken)
	if err != nil {
		if core.IsAuthError(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting authenticated user")
	}
	return r.ResolveIdentity(ctx, identity)
}

// ResolveIdentity joins an already verified identity with its profile.
// An identity without profile is anonymous; the inconsistency is logged.
func (r *Resolver) ResolveIdentity(ctx context.Context, identity Identity) (*user.CurrentUser, error) {
	if identity.ID == "" {
		return nil, nil
	}
	p, err := r.profiles.GetProfile(ctx, identity.ID)
	if err != nil {
		if core.IsNotFound(err) {
			r.logger.Warn("authenticated identity has no profile", map[string]interface{}{
				"user_id": identity.ID,
				"email":   identity.Email,
			})
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting profile")
	}
	return p.CurrentUser(), nil
}
