package identity

import (
	"context"
	"fmt"

	"vodgate/internal/core/domain"
	"vodgate/pkg/tracing"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

// OIDCVerifier checks id tokens against an OpenID Connect provider's
// published keys.
type OIDCVerifier struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
	logger    *zap.SugaredLogger
}

// NewOIDCVerifier performs provider discovery once. It fails when the
// issuer is unreachable at startup.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID, roleClaim string, logger *zap.SugaredLogger) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider %s: %w", issuerURL, err)
	}

	logger.Infow("oidc provider discovered", "issuer", issuerURL, "client_id", clientID)
	return NewOIDCVerifierWithKeys(provider.Verifier(&oidc.Config{ClientID: clientID}), roleClaim, logger), nil
}

// NewOIDCVerifierWithKeys wraps an already configured token verifier,
// e.g. one built from oidc.StaticKeySet.
func NewOIDCVerifierWithKeys(verifier *oidc.IDTokenVerifier, roleClaim string, logger *zap.SugaredLogger) *OIDCVerifier {
	return &OIDCVerifier{
		verifier:  verifier,
		roleClaim: roleClaim,
		logger:    logger,
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, idToken string) (*domain.VerifiedIdentity, error) {
	ctx, span := tracing.TraceIdentityVerification(ctx, "oidc")
	defer span.End()

	token, err := v.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidIDToken, err)
	}

	var claims map[string]interface{}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidIDToken, err)
	}
	if claims == nil {
		claims = map[string]interface{}{}
	}
	claims["sub"] = token.Subject

	return identityFromClaims(claims, v.roleClaim)
}
