package services

import (
	"context"
	"fmt"
	"time"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"
	apperrors "vodgate/pkg/errors"
	"vodgate/pkg/tracing"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome labels for authorization metrics.
const (
	OutcomeGranted            = "granted"
	OutcomeIdentityMismatch   = "identity_mismatch"
	OutcomeNotFound           = "not_found"
	OutcomeEntitlementExpired = "entitlement_expired"
	OutcomeError              = "error"
)

type AuthorizationOption func(*authorizationService)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) AuthorizationOption {
	return func(s *authorizationService) { s.now = now }
}

// WithLookupTimeout bounds the joined lookups of one request.
func WithLookupTimeout(d time.Duration) AuthorizationOption {
	return func(s *authorizationService) { s.lookupTimeout = d }
}

type authorizationService struct {
	contents      ports.ContentRepository
	users         ports.UserRepository
	verifier      ports.IdentityVerifier
	signer        ports.DeliverySigner
	metrics       ports.MetricsRecorder // Optional, can be nil
	logger        *zap.SugaredLogger
	now           func() time.Time
	lookupTimeout time.Duration
}

func NewAuthorizationService(
	contents ports.ContentRepository,
	users ports.UserRepository,
	verifier ports.IdentityVerifier,
	signer ports.DeliverySigner,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
	opts ...AuthorizationOption,
) ports.AuthorizationService {
	s := &authorizationService{
		contents:      contents,
		users:         users,
		verifier:      verifier,
		signer:        signer,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
		lookupTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookups holds the independent reads of one request. Each error is kept
// separately so that identity failures take precedence over missing
// content regardless of which lookup finished first.
type lookups struct {
	identity    *domain.VerifiedIdentity
	identityErr error
	user        *domain.User
	userErr     error
	item        *domain.ContentItem
	itemErr     error
	cred        *domain.DeliveryCredential
	credErr     error
}

func (s *authorizationService) Authorize(ctx context.Context, req domain.AuthorizationRequest) (*ports.Authorization, error) {
	start := time.Now()
	ctx, span := tracing.TraceAuthorization(ctx, string(req.Kind), string(req.ContentID), req.PublicAccess)
	defer span.End()

	auth, err := s.authorize(ctx, req)

	outcome := outcomeOf(err)
	span.SetAttributes(tracing.OutcomeKey.String(outcome))
	if s.metrics != nil {
		s.metrics.RecordAuthorization(req.Kind, outcome, time.Since(start))
	}

	if err != nil {
		// The response body is empty; the reason only goes to logs.
		s.logger.Infow("authorization refused",
			"kind", req.Kind,
			"content_id", req.ContentID,
			"user_id", req.UserID,
			"public", req.PublicAccess,
			"outcome", outcome,
			"reason", err,
		)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCookieIssued(req.Kind, auth.Grant.Decision.Kind())
	}
	s.logger.Infow("authorization granted",
		"kind", req.Kind,
		"content_id", req.ContentID,
		"user_id", auth.Grant.Viewer.UserID,
		"role", auth.Grant.Viewer.Role,
		"decision", auth.Grant.Decision.String(),
		"expires_at", auth.Grant.ExpiresAt,
	)
	return auth, nil
}

func (s *authorizationService) authorize(ctx context.Context, req domain.AuthorizationRequest) (*ports.Authorization, error) {
	if !req.Kind.Valid() || req.ContentID == "" {
		return nil, apperrors.NewNotFoundError("content")
	}
	if !req.PublicAccess && (req.UserID == "" || req.IDToken == "") {
		return nil, apperrors.NewNotFoundError("content")
	}

	res := s.lookup(ctx, req)

	viewer := domain.AnonymousViewer()
	if !req.PublicAccess {
		v, err := authenticate(req, res)
		if err != nil {
			return nil, err
		}
		viewer = v
	}
	tracing.AddSpanAttributes(ctx,
		tracing.UserIDKey.String(string(viewer.UserID)),
		tracing.RoleKey.String(string(viewer.Role)),
	)

	if res.itemErr != nil || res.item == nil {
		return nil, apperrors.NewNotFoundError("content").WithCause(res.itemErr)
	}
	if res.credErr != nil || res.cred == nil {
		return nil, apperrors.NewNotFoundError("credential").WithCause(res.credErr)
	}
	item := res.item
	now := s.now()

	if !viewer.Role.IsOperator() {
		if !item.Status.IsPublic() {
			return nil, apperrors.NewNotFoundError("content").
				WithContext("status", string(item.Status))
		}
		if item.PublishedAt.After(now) {
			return nil, apperrors.NewNotFoundError("content").
				WithContext("published_at", item.PublishedAt)
		}
	}

	// A viewer below the entry gate sees the same response as a missing item.
	if !domain.IsRoleAtLeast(viewer.Role, item.RequiredRole) {
		return nil, apperrors.NewNotFoundError("content").
			WithContext("role", string(viewer.Role)).
			WithContext("required_role", string(item.RequiredRole))
	}

	decision := domain.ResolveExpiry(viewer.Role, item.ExpiredAt)
	tracing.AddSpanAttributes(ctx, tracing.DecisionKey.String(decision.String()))
	if !domain.HasAccessNow(decision, now) {
		return nil, apperrors.NewEntitlementExpiredError("entitlement is not active").
			WithContext("role", string(viewer.Role)).
			WithContext("decision", decision.String())
	}

	expiresAt, ok := decision.At()
	if !ok {
		expiresAt = now.Add(s.signer.MaxUnboundedTTL())
	}

	return &ports.Authorization{
		Grant: domain.Grant{
			ContentID: item.ID,
			Kind:      req.Kind,
			SourceURL: res.cred.URL,
			ExpiresAt: expiresAt,
			Decision:  decision,
			Viewer:    viewer,
		},
		Cookie: s.signer.Cookie(item.ID, expiresAt),
	}, nil
}

// lookup runs the independent reads of a request concurrently and joins
// them under a single deadline.
func (s *authorizationService) lookup(ctx context.Context, req domain.AuthorizationRequest) *lookups {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	res := &lookups{}
	var g errgroup.Group

	if !req.PublicAccess {
		g.Go(func() error {
			res.identity, res.identityErr = s.verifier.Verify(ctx, req.IDToken)
			return nil
		})
		g.Go(func() error {
			res.user, res.userErr = s.users.GetUser(ctx, req.UserID)
			return nil
		})
	}
	g.Go(func() error {
		res.item, res.itemErr = s.contents.GetContent(ctx, req.Kind, req.ContentID)
		return nil
	})
	g.Go(func() error {
		res.cred, res.credErr = s.contents.GetCredential(ctx, req.Kind, req.ContentID)
		return nil
	})

	_ = g.Wait()
	return res
}

func authenticate(req domain.AuthorizationRequest, res *lookups) (domain.Viewer, error) {
	if res.identityErr != nil || res.identity == nil {
		return domain.Viewer{}, apperrors.NewIdentityMismatchError("id token rejected").WithCause(res.identityErr)
	}
	if res.identity.UID != req.UserID {
		return domain.Viewer{}, apperrors.NewIdentityMismatchError(
			fmt.Sprintf("token uid %s does not match user id", res.identity.UID))
	}
	if res.userErr != nil || res.user == nil {
		return domain.Viewer{}, apperrors.NewIdentityMismatchError("user record unavailable").WithCause(res.userErr)
	}
	if res.user.Disabled {
		return domain.Viewer{}, apperrors.NewIdentityMismatchError("user is disabled")
	}
	return domain.ViewerFromIdentity(*res.identity), nil
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeGranted
	}
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		return OutcomeError
	}
	switch appErr.Code {
	case apperrors.ErrCodeIdentityMismatch:
		return OutcomeIdentityMismatch
	case apperrors.ErrCodeNotFound:
		return OutcomeNotFound
	case apperrors.ErrCodeEntitlementExpired:
		return OutcomeEntitlementExpired
	}
	return OutcomeError
}
