package domain

import (
	"fmt"
	"time"
)

// DecisionKind classifies an ExpiryDecision.
type DecisionKind int

const (
	DecisionDenied DecisionKind = iota
	DecisionUnbounded
	DecisionExpiresAt
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionDenied:
		return "denied"
	case DecisionUnbounded:
		return "unbounded"
	case DecisionExpiresAt:
		return "expires_at"
	default:
		return "unknown"
	}
}

// ExpiryDecision is the outcome of resolving a viewer role against an
// expiration map. The zero value is Denied.
type ExpiryDecision struct {
	kind DecisionKind
	at   time.Time
}

func Denied() ExpiryDecision { return ExpiryDecision{kind: DecisionDenied} }

func Unbounded() ExpiryDecision { return ExpiryDecision{kind: DecisionUnbounded} }

func ExpiresAt(t time.Time) ExpiryDecision {
	return ExpiryDecision{kind: DecisionExpiresAt, at: t}
}

func (d ExpiryDecision) Kind() DecisionKind { return d.kind }

// At returns the expiry instant; ok is false unless the decision is ExpiresAt.
func (d ExpiryDecision) At() (time.Time, bool) {
	return d.at, d.kind == DecisionExpiresAt
}

func (d ExpiryDecision) String() string {
	if d.kind == DecisionExpiresAt {
		return fmt.Sprintf("expires_at(%s)", d.at.UTC().Format(time.RFC3339))
	}
	return d.kind.String()
}

// ResolveExpiry maps a viewer role and an item's expiration map to a
// decision. Operators are unbounded regardless of the map. A role without
// a key is denied; a key with no timestamp is unbounded.
//
// Only the viewer's own key is consulted. Neighbouring roles are never used
// to infer an expiry, even when the map is not monotonic.
func ResolveExpiry(viewer Role, expiredAt ExpirationMap) ExpiryDecision {
	if viewer.IsOperator() {
		return Unbounded()
	}
	if !viewer.Valid() {
		return Denied()
	}
	t, ok := expiredAt[viewer]
	if !ok {
		return Denied()
	}
	if t == nil || t.IsZero() {
		return Unbounded()
	}
	return ExpiresAt(*t)
}

// HasAccessNow reports whether the decision grants access at now.
// An ExpiresAt decision is already lapsed at the boundary instant.
func HasAccessNow(d ExpiryDecision, now time.Time) bool {
	switch d.kind {
	case DecisionUnbounded:
		return true
	case DecisionExpiresAt:
		return now.Before(d.at)
	case DecisionDenied:
		return false
	}
	return false
}
