package ports

import (
	"context"
	"net/http"
	"time"

	"vodgate/internal/core/domain"
)

// IdentityVerifier checks a bearer id token and returns the identity it
// vouches for.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*domain.VerifiedIdentity, error)
}

// DeliverySigner issues CDN signed cookies scoped to a single content id.
type DeliverySigner interface {
	Cookie(contentID domain.ContentID, expiresAt time.Time) *http.Cookie
	MaxUnboundedTTL() time.Duration
}

// Authorization is a grant together with the cookie that carries it.
type Authorization struct {
	Grant  domain.Grant
	Cookie *http.Cookie
}

type AuthorizationService interface {
	Authorize(ctx context.Context, req domain.AuthorizationRequest) (*Authorization, error)
}

// MetricsRecorder receives authorization and store measurements.
type MetricsRecorder interface {
	RecordAuthorization(kind domain.ContentKind, outcome string, duration time.Duration)
	RecordCookieIssued(kind domain.ContentKind, decision domain.DecisionKind)
	RecordStoreLookup(store, op string, duration time.Duration)
}
