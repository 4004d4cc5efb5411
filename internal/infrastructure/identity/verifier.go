package identity

import (
	"context"
	"fmt"

	"vodgate/internal/core/ports"
	"vodgate/pkg/config"

	"go.uber.org/zap"
)

// NewVerifier builds the identity verifier selected by identity.mode.
func NewVerifier(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (ports.IdentityVerifier, error) {
	switch cfg.Identity.Mode {
	case "jwt":
		return NewJWTVerifier(
			cfg.Identity.JWT.Secret,
			cfg.Identity.JWT.Issuer,
			cfg.Identity.JWT.Audience,
			cfg.Identity.RoleClaim,
			logger,
		), nil
	case "oidc":
		return NewOIDCVerifier(ctx, cfg.Identity.OIDC.IssuerURL, cfg.Identity.OIDC.ClientID, cfg.Identity.RoleClaim, logger)
	default:
		return nil, fmt.Errorf("unknown identity mode: %s", cfg.Identity.Mode)
	}
}
