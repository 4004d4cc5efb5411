package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) *time.Time {
	t.Helper()
	ts, err := ParseExpiry(s)
	require.NoError(t, err)
	return ts
}

// goldItemExpiry is the expiration map used throughout the delivery scenarios.
func goldItemExpiry(t *testing.T) ExpirationMap {
	return ExpirationMap{
		RoleDiamond:  nil,
		RolePlatinum: nil,
		RoleGold:     mustTime(t, "2024-01-08T00:00"),
	}
}

func TestResolveExpiry(t *testing.T) {
	expiry := goldItemExpiry(t)

	tests := []struct {
		name   string
		viewer Role
		want   ExpiryDecision
	}{
		{"timestamped role", RoleGold, ExpiresAt(*expiry[RoleGold])},
		{"empty value", RolePlatinum, Unbounded()},
		{"empty value top tier", RoleDiamond, Unbounded()},
		{"role below gate", RoleSilver, Denied()},
		{"anonymous", RoleNonUser, Denied()},
		{"operator bypass", RoleAdmin, Unbounded()},
		{"cast bypass", RoleCast, Unbounded()},
		{"unknown role", Role("vip"), Denied()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveExpiry(tt.viewer, expiry))
		})
	}
}

func TestResolveExpiry_OperatorIgnoresEmptyMap(t *testing.T) {
	assert.Equal(t, Unbounded(), ResolveExpiry(RoleSuperAdmin, nil))
	assert.Equal(t, Denied(), ResolveExpiry(RoleDiamond, nil))
}

func TestResolveExpiry_DoesNotInferFromNeighbours(t *testing.T) {
	// platinum expires before gold: an inverted map is looked up as-is.
	expiry := ExpirationMap{
		RoleGold:     mustTime(t, "2024-03-01T00:00"),
		RolePlatinum: mustTime(t, "2024-02-01T00:00"),
		RoleDiamond:  nil,
	}
	d := ResolveExpiry(RolePlatinum, expiry)
	at, ok := d.At()
	require.True(t, ok)
	assert.Equal(t, *expiry[RolePlatinum], at)
}

func TestResolveExpiry_Deterministic(t *testing.T) {
	expiry := goldItemExpiry(t)
	for _, r := range ViewerRoles {
		assert.Equal(t, ResolveExpiry(r, expiry), ResolveExpiry(r, expiry))
	}
}

func TestHasAccessNow(t *testing.T) {
	at := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	assert.True(t, HasAccessNow(Unbounded(), time.Time{}))
	assert.True(t, HasAccessNow(Unbounded(), at.AddDate(100, 0, 0)))

	assert.True(t, HasAccessNow(ExpiresAt(at), at.Add(-time.Nanosecond)))
	assert.False(t, HasAccessNow(ExpiresAt(at), at), "boundary instant must be rejected")
	assert.False(t, HasAccessNow(ExpiresAt(at), at.Add(time.Second)))

	assert.False(t, HasAccessNow(Denied(), at))
	assert.False(t, HasAccessNow(ExpiryDecision{}, at))
}

func TestExpiryDecision_At(t *testing.T) {
	_, ok := Unbounded().At()
	assert.False(t, ok)
	_, ok = Denied().At()
	assert.False(t, ok)

	at := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	got, ok := ExpiresAt(at).At()
	assert.True(t, ok)
	assert.Equal(t, at, got)
	assert.Equal(t, "expires_at(2024-01-08T00:00:00Z)", ExpiresAt(at).String())
}
