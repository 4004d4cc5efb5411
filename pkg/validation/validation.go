package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ContentIDRegex validates content ids. A content id is also a CDN path
	// segment, so separators and dots are rejected.
	ContentIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// UserIDRegex validates user ids as issued by identity providers.
	UserIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_:.@|-]+$`)
)

const (
	maxContentIDLength = 128
	maxUserIDLength    = 128
	maxIDTokenLength   = 8192
)

// ValidateContentID validates a video or livestreaming id
func ValidateContentID(id string) error {
	if id == "" {
		return fmt.Errorf("content ID is required")
	}
	if len(id) > maxContentIDLength {
		return fmt.Errorf("content ID is too long (max %d characters)", maxContentIDLength)
	}
	if !ContentIDRegex.MatchString(id) {
		return fmt.Errorf("invalid content ID format")
	}
	return nil
}

// ValidateUserID validates a user id
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user ID is required")
	}
	if len(id) > maxUserIDLength {
		return fmt.Errorf("user ID is too long (max %d characters)", maxUserIDLength)
	}
	if !UserIDRegex.MatchString(id) {
		return fmt.Errorf("invalid user ID format")
	}
	return nil
}

// ValidateIDToken checks the shape of a bearer id token before it is handed
// to a verifier: three dot-separated segments, bounded length.
func ValidateIDToken(token string) error {
	if token == "" {
		return fmt.Errorf("id token is required")
	}
	if len(token) > maxIDTokenLength {
		return fmt.Errorf("id token is too long (max %d characters)", maxIDTokenLength)
	}
	if strings.Count(token, ".") != 2 {
		return fmt.Errorf("id token is not a compact JWS")
	}
	return nil
}

// ValidateURL validates an absolute http(s) URL
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
