package identity

import (
	"context"
	"errors"
	"fmt"

	"vodgate/internal/core/domain"
	"vodgate/pkg/tracing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWTVerifier checks HS256 id tokens issued by a trusted identity service
// that shares a secret with the gateway.
type JWTVerifier struct {
	secret    []byte
	roleClaim string
	parser    *jwt.Parser
	logger    *zap.SugaredLogger
}

// NewJWTVerifier creates a verifier. Issuer and audience are only checked
// when non-empty.
func NewJWTVerifier(secret, issuer, audience, roleClaim string, logger *zap.SugaredLogger) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &JWTVerifier{
		secret:    []byte(secret),
		roleClaim: roleClaim,
		parser:    jwt.NewParser(opts...),
		logger:    logger,
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, idToken string) (*domain.VerifiedIdentity, error) {
	_, span := tracing.TraceIdentityVerification(ctx, "jwt")
	defer span.End()

	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			v.logger.Debugw("expired id token", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidIDToken, err)
	}
	if !token.Valid {
		return nil, domain.ErrInvalidIDToken
	}

	return identityFromClaims(claims, v.roleClaim)
}

// identityFromClaims reads the subject and the configured role claim.
// Tokens minted by Firebase also carry the subject as user_id.
func identityFromClaims(claims map[string]interface{}, roleClaim string) (*domain.VerifiedIdentity, error) {
	uid, _ := claims["sub"].(string)
	if uid == "" {
		uid, _ = claims["user_id"].(string)
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: no subject", domain.ErrInvalidIDToken)
	}

	role, _ := claims[roleClaim].(string)
	return &domain.VerifiedIdentity{
		UID:       domain.UserID(uid),
		RoleClaim: role,
	}, nil
}
