package session

import (
	"context"

	"github.com/smartstudy/studycli/internal/client/api"
	"github.com/smartstudy/studycli/internal/client/models"
	"github.com/smartstudy/studycli/internal/logging"
)

// Resolver decides, once per application start, whether a valid session
// already exists in the store.
//
// An alternate-provider token must be revalidated against the profile
// endpoint before it is trusted; a primary-provider token with a cached
// user record is trusted without a network round-trip.
type Resolver struct {
	api   api.Client
	store *Store
	log   logging.Logger
}

func NewResolver(client api.Client, store *Store, log logging.Logger) *Resolver {
	return &Resolver{api: client, store: store, log: log}
}

// Resolve returns the restored session, or nil when the client is
// unauthenticated. Exactly one of {restore, clear alternate
// credentials} happens; never both.
func (r *Resolver) Resolve(ctx context.Context) (*models.Session, error) {
	altToken, err := r.store.AlternateToken(ctx)
	if err != nil {
		return nil, err
	}

	if altToken != "" {
		return r.resolveAlternate(ctx, altToken)
	}

	primaryToken, err := r.store.PrimaryToken(ctx)
	if err != nil {
		return nil, err
	}
	user, err := r.store.User(ctx)
	if err != nil {
		r.log.Warn(ctx, "cached user record unreadable, treating as unauthenticated", "error", err)
		return nil, nil
	}

	if primaryToken != "" && user != nil {
		r.log.Info(ctx, "restored session from cache", "provider", models.ProviderPrimary, "username", user.Username)
		return &models.Session{
			Provider: models.ProviderPrimary,
			Token:    primaryToken,
			User:     *user,
		}, nil
	}

	return nil, nil
}

// resolveAlternate validates the stored bearer token with a profile
// fetch. Any failure (transport, server error, or a profile without an
// identifier) clears the alternate credentials so a token the backend
// would not accept is never retained.
func (r *Resolver) resolveAlternate(ctx context.Context, token string) (*models.Session, error) {
	cred := models.Credential{Provider: models.ProviderAlternate, Token: token}

	profile, err := r.api.Profile(ctx, cred)
	if err != nil || profile.ID == 0 {
		if err != nil {
			r.log.Warn(ctx, "alternate token validation failed, clearing credentials", "error", err)
		} else {
			r.log.Warn(ctx, "profile response has no identifier, clearing credentials")
		}
		if clearErr := r.store.ClearAlternate(ctx); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}

	if err := r.store.SaveUser(ctx, profile.UserSummary); err != nil {
		return nil, err
	}

	r.log.Info(ctx, "restored session", "provider", models.ProviderAlternate, "username", profile.Username)
	return &models.Session{
		Provider: models.ProviderAlternate,
		Token:    token,
		User:     profile.UserSummary,
	}, nil
}
