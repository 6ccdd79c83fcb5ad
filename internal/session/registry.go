// Package session tracks per-(audience, subject) login markers on top of the
// expiring key-value store. A subject is "logged in for audience X" iff a
// live marker exists for that pair; several markers may coexist for one
// subject, one per client audience.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/cache"
)

// Registry manages session markers keyed `audience:subjectID`.
type Registry struct {
	store  cache.Store
	logger *zap.Logger
}

// NewRegistry builds a registry around the given store.
func NewRegistry(store cache.Store, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logger}
}

// Key returns the marker key for an (audience, subject) pair. Exported so
// operators can recognize the namespace when inspecting the store.
func Key(audience, subjectID string) string {
	return audience + ":" + subjectID
}

// StartSession records a login marker holding the issued token value, with
// TTL equal to the token lifetime.
func (r *Registry) StartSession(ctx context.Context, audience, subjectID, tokenValue string, ttl time.Duration) error {
	return r.store.Set(ctx, Key(audience, subjectID), tokenValue, ttl)
}

// IsActive reports whether a live marker exists for the pair.
func (r *Registry) IsActive(ctx context.Context, audience, subjectID string) (bool, error) {
	return r.store.Exists(ctx, Key(audience, subjectID))
}

// EndSession removes the marker. Removing an absent marker is success, so
// retries after a timeout are safe.
func (r *Registry) EndSession(ctx context.Context, audience, subjectID string) error {
	return r.store.Remove(ctx, Key(audience, subjectID))
}

// EndAllSessions removes the marker for every known audience. The sweep is
// best-effort: individual removal failures are logged and do not abort it,
// and the primary operation (password change, account deletion) must not be
// rolled back on partial failure.
func (r *Registry) EndAllSessions(ctx context.Context, subjectID string, audiences []string) {
	for _, audience := range audiences {
		if err := r.store.Remove(ctx, Key(audience, subjectID)); err != nil {
			r.logger.Warn("session revocation failed",
				zap.String("audience", audience),
				zap.String("subject_id", subjectID),
				zap.Error(err))
		}
	}
}

// IsLoggedInAnywhere reports whether any per-audience marker is live for the
// subject across the provided audiences.
func (r *Registry) IsLoggedInAnywhere(ctx context.Context, subjectID string, audiences []string) (bool, error) {
	for _, audience := range audiences {
		active, err := r.store.Exists(ctx, Key(audience, subjectID))
		if err != nil {
			return false, err
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}
