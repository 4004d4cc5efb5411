package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"vodgate/pkg/validation"
)

type ContentID string

// ContentKind separates videos and livestreamings, which share a shape here
// but live under different namespaces in the store.
type ContentKind string

const (
	KindVideo         ContentKind = "video"
	KindLivestreaming ContentKind = "livestreaming"
)

func (k ContentKind) Valid() bool {
	return k == KindVideo || k == KindLivestreaming
}

type ContentStatus string

// Video statuses.
const (
	StatusPrivate   ContentStatus = "Private"
	StatusLimited   ContentStatus = "Limited"
	StatusPublished ContentStatus = "Published"
)

// Livestreaming statuses.
const (
	StatusScheduled ContentStatus = "Scheduled"
	StatusStreaming ContentStatus = "Streaming"
	StatusFinished  ContentStatus = "Finished"
)

// IsPublic reports whether the status admits non-operator viewers.
// Scheduled is the livestreaming counterpart of Private.
func (s ContentStatus) IsPublic() bool {
	switch s {
	case StatusLimited, StatusPublished, StatusStreaming, StatusFinished:
		return true
	case StatusPrivate, StatusScheduled:
		return false
	}
	return false
}

func (s ContentStatus) validFor(kind ContentKind) bool {
	switch kind {
	case KindVideo:
		return s == StatusPrivate || s == StatusLimited || s == StatusPublished
	case KindLivestreaming:
		return s == StatusScheduled || s == StatusStreaming || s == StatusFinished
	}
	return false
}

// ContentItem is the subset of a video or livestreaming record that the
// delivery path needs.
type ContentItem struct {
	ID           ContentID     `json:"id" yaml:"id"`
	Kind         ContentKind   `json:"kind" yaml:"kind"`
	Status       ContentStatus `json:"status" yaml:"status"`
	RequiredRole Role          `json:"requiredRole" yaml:"requiredRole"`
	ExpiredAt    ExpirationMap `json:"expiredAt" yaml:"expiredAt"`
	PublishedAt  time.Time     `json:"publishedAt" yaml:"publishedAt"`
}

// Validate enforces the construction-time invariants of a content item:
// a known kind and status, a viewer entry gate, and an expiration map whose
// keys are exactly the roles at or above that gate.
func (c *ContentItem) Validate() error {
	if err := validation.ValidateContentID(string(c.ID)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidContent, c.Kind)
	}
	if !c.Status.validFor(c.Kind) {
		return fmt.Errorf("%w: status %q not valid for %s", ErrInvalidContent, c.Status, c.Kind)
	}
	allowed := AllowedRolesAtOrAbove(c.RequiredRole)
	if len(allowed) == 0 {
		return fmt.Errorf("%w: requiredRole %q is not a viewer role", ErrInvalidContent, c.RequiredRole)
	}
	if len(c.ExpiredAt) != len(allowed) {
		return fmt.Errorf("%w: expiredAt has %d roles, want %d (%s and above)",
			ErrInvalidContent, len(c.ExpiredAt), len(allowed), c.RequiredRole)
	}
	for _, r := range allowed {
		if _, ok := c.ExpiredAt[r]; !ok {
			return fmt.Errorf("%w: expiredAt missing role %s", ErrInvalidContent, r)
		}
	}
	return nil
}

// CheckMonotonic returns the pairs of adjacent roles where a higher role
// expires before a lower one. It never modifies the map.
func (c *ContentItem) CheckMonotonic() []string {
	var inversions []string
	allowed := AllowedRolesAtOrAbove(c.RequiredRole)
	for i := 1; i < len(allowed); i++ {
		lower, higher := c.ExpiredAt[allowed[i-1]], c.ExpiredAt[allowed[i]]
		switch {
		case lower == nil && higher != nil:
			inversions = append(inversions, fmt.Sprintf("%s expires but %s does not", allowed[i], allowed[i-1]))
		case lower != nil && higher != nil && higher.Before(*lower):
			inversions = append(inversions, fmt.Sprintf("%s expires before %s", allowed[i], allowed[i-1]))
		}
	}
	return inversions
}

// DeliveryCredential holds the canonical source URL of a content item.
type DeliveryCredential struct {
	ContentID ContentID   `json:"contentId" yaml:"contentId"`
	Kind      ContentKind `json:"kind" yaml:"kind"`
	URL       string      `json:"url" yaml:"url"`
}

func (c *DeliveryCredential) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: credential for %s has unknown kind %q", ErrInvalidContent, c.ContentID, c.Kind)
	}
	if err := validation.ValidateContentID(string(c.ContentID)); err != nil {
		return fmt.Errorf("%w: credential: %v", ErrInvalidContent, err)
	}
	if err := validation.ValidateURL(c.URL); err != nil {
		return fmt.Errorf("%w: credential for %s: %v", ErrInvalidContent, c.ContentID, err)
	}
	return nil
}

// ExpirationMap maps viewer roles to the instant their access lapses.
// A nil value means the role never expires.
type ExpirationMap map[Role]*time.Time

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseExpiry parses an expiry value as written by the content store.
// Empty input yields nil.
func ParseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised expiry timestamp %q", s)
}

// NewExpirationMap builds a map from wire strings.
func NewExpirationMap(raw map[string]string) (ExpirationMap, error) {
	m := make(ExpirationMap, len(raw))
	for k, v := range raw {
		role, err := ParseRole(k)
		if err != nil {
			return nil, err
		}
		t, err := ParseExpiry(v)
		if err != nil {
			return nil, fmt.Errorf("expiredAt[%s]: %w", k, err)
		}
		m[role] = t
	}
	return m, nil
}

func (m ExpirationMap) raw() map[string]string {
	out := make(map[string]string, len(m))
	for role, t := range m {
		if t == nil {
			out[string(role)] = ""
			continue
		}
		out[string(role)] = t.UTC().Format(time.RFC3339)
	}
	return out
}

func (m ExpirationMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.raw())
}

func (m *ExpirationMap) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	flat := make(map[string]string, len(raw))
	for k, v := range raw {
		if v != nil {
			flat[k] = *v
		} else {
			flat[k] = ""
		}
	}
	parsed, err := NewExpirationMap(flat)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m ExpirationMap) MarshalYAML() (interface{}, error) {
	return m.raw(), nil
}

func (m *ExpirationMap) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := NewExpirationMap(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Roles returns the map's keys in hierarchy order.
func (m ExpirationMap) Roles() []Role {
	roles := make([]Role, 0, len(m))
	for r := range m {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool {
		a, _ := roles[i].ordinal()
		b, _ := roles[j].ordinal()
		return a < b
	})
	return roles
}
