package services

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vodgate/internal/core/domain"
	apperrors "vodgate/pkg/errors"

	"go.uber.org/zap"
)

const DefaultCookieName = "Cloud-CDN-Cookie"

// CDNSignerConfig is the signing material and cookie shape, read once at
// startup.
type CDNSignerConfig struct {
	KeyName         string
	SecretKey       string // base64 or base64url
	CookieName      string
	CookieDomain    string
	Secure          bool
	BaseURL         string
	MaxUnboundedTTL time.Duration
}

// CDNSigner issues signed cookies in the format verified by Google Cloud
// CDN: URLPrefix, Expires and KeyName signed with HMAC-SHA1.
type CDNSigner struct {
	keyName      string
	key          []byte
	cookieName   string
	cookieDomain string
	secure       bool
	baseURL      string
	maxTTL       time.Duration
	logger       *zap.SugaredLogger
}

// NewCDNSigner decodes the key material. Any problem here is a
// configuration error and the caller is expected to stop.
func NewCDNSigner(cfg CDNSignerConfig, logger *zap.SugaredLogger) (*CDNSigner, error) {
	if cfg.KeyName == "" {
		return nil, apperrors.NewConfigurationError("cdn key name is empty", nil)
	}
	key, err := decodeKey(cfg.SecretKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError("cdn secret key is not valid base64", err)
	}
	if len(key) == 0 {
		return nil, apperrors.NewConfigurationError("cdn secret key is empty", nil)
	}
	if cfg.BaseURL == "" {
		return nil, apperrors.NewConfigurationError("cdn base url is empty", nil)
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	maxTTL := cfg.MaxUnboundedTTL
	if maxTTL <= 0 {
		maxTTL = 24 * time.Hour
	}

	return &CDNSigner{
		keyName:      cfg.KeyName,
		key:          key,
		cookieName:   cookieName,
		cookieDomain: cfg.CookieDomain,
		secure:       cfg.Secure,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		maxTTL:       maxTTL,
		logger:       logger,
	}, nil
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if key, err := base64.URLEncoding.DecodeString(s); err == nil {
		return key, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// Sign returns the signed cookie value for urlPrefix valid until the given
// unix second. The output is deterministic for identical inputs.
func (s *CDNSigner) Sign(urlPrefix string, expiresAt int64) string {
	encodedPrefix := base64.URLEncoding.EncodeToString([]byte(urlPrefix))
	input := fmt.Sprintf("URLPrefix=%s:Expires=%d:KeyName=%s", encodedPrefix, expiresAt, s.keyName)

	mac := hmac.New(sha1.New, s.key)
	mac.Write([]byte(input))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return input + ":Signature=" + sig
}

// URLPrefix is the CDN path a cookie for contentID unlocks.
func (s *CDNSigner) URLPrefix(contentID domain.ContentID) string {
	return s.baseURL + "/" + string(contentID) + "/"
}

// Cookie builds the Set-Cookie for a content id. Sub-second precision of
// expiresAt is dropped.
func (s *CDNSigner) Cookie(contentID domain.ContentID, expiresAt time.Time) *http.Cookie {
	unix := expiresAt.Unix()
	cookie := &http.Cookie{
		Name:    s.cookieName,
		Value:   s.Sign(s.URLPrefix(contentID), unix),
		Path:    "/" + string(contentID),
		Domain:  s.cookieDomain,
		Expires: time.Unix(unix, 0).UTC(),
	}
	if s.secure {
		cookie.Secure = true
		cookie.HttpOnly = true
		cookie.SameSite = http.SameSiteNoneMode
	}

	s.logger.Debugw("signed delivery cookie",
		"content_id", contentID,
		"expires", unix,
		"key_name", s.keyName,
	)
	return cookie
}

func (s *CDNSigner) MaxUnboundedTTL() time.Duration {
	return s.maxTTL
}

// Verify recomputes the signature of a signed value with this signer's key.
func (s *CDNSigner) Verify(value string) (*domain.SignedDeliveryToken, error) {
	tok, err := ParseSignedValue(value)
	if err != nil {
		return nil, err
	}
	if tok.KeyName != s.keyName {
		return nil, fmt.Errorf("key name %q does not match %q", tok.KeyName, s.keyName)
	}
	want := s.Sign(tok.URLPrefix, tok.ExpiresAt.Unix())
	if !hmac.Equal([]byte(want), []byte(value)) {
		return nil, fmt.Errorf("signature mismatch")
	}
	return tok, nil
}

// ParseSignedValue splits a signed cookie value into its fields and decodes
// the URL prefix. It does not check the signature.
func ParseSignedValue(value string) (*domain.SignedDeliveryToken, error) {
	fields := strings.Split(value, ":")
	if len(fields) != 4 {
		return nil, fmt.Errorf("signed value has %d fields, want 4", len(fields))
	}

	want := []string{"URLPrefix", "Expires", "KeyName", "Signature"}
	vals := make([]string, len(want))
	for i, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k != want[i] {
			return nil, fmt.Errorf("field %d: want %s", i, want[i])
		}
		vals[i] = v
	}

	prefix, err := base64.URLEncoding.DecodeString(vals[0])
	if err != nil {
		return nil, fmt.Errorf("decode url prefix: %w", err)
	}
	unix, err := strconv.ParseInt(vals[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expires: %w", err)
	}

	return &domain.SignedDeliveryToken{
		URLPrefix: string(prefix),
		KeyName:   vals[2],
		ExpiresAt: time.Unix(unix, 0).UTC(),
		Signature: vals[3],
	}, nil
}
