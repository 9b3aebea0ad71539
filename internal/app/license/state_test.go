package license

import (
	"testing"
	"time"

	"licensecloud/internal/app/ds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestStateOf(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		row     ds.License
		want    State
		corrupt bool
	}{
		{
			name: "unbound",
			row:  ds.License{LicenseType: "trial", IsActive: true},
			want: ActiveUnbound{},
		},
		{
			name: "bound trial",
			row: ds.License{LicenseType: "trial", IsActive: true, MachineID: strPtr("m1"),
				ActivatedAt: timePtr(now), ExpiresAt: ExpiresAt(TypeTrial, now)},
			want: ActiveBound{MachineID: "m1", ActivatedAt: now, ExpiresAt: ExpiresAt(TypeTrial, now)},
		},
		{
			name: "bound permanent",
			row: ds.License{LicenseType: "permanent", IsActive: true, MachineID: strPtr("m1"),
				ActivatedAt: timePtr(now)},
			want: ActiveBound{MachineID: "m1", ActivatedAt: now},
		},
		{
			name: "revoked unbound",
			row:  ds.License{LicenseType: "trial", IsActive: false},
			want: Revoked{},
		},
		{
			name: "revoked bound",
			row: ds.License{LicenseType: "trial", IsActive: false, MachineID: strPtr("m1"),
				ActivatedAt: timePtr(now), ExpiresAt: ExpiresAt(TypeTrial, now)},
			want: Revoked{},
		},
		{
			name:    "unbound with activation time",
			row:     ds.License{LicenseType: "trial", IsActive: true, ActivatedAt: timePtr(now)},
			corrupt: true,
		},
		{
			name:    "bound without activation time",
			row:     ds.License{LicenseType: "trial", IsActive: true, MachineID: strPtr("m1")},
			corrupt: true,
		},
		{
			name: "permanent with expiry",
			row: ds.License{LicenseType: "permanent", IsActive: true, MachineID: strPtr("m1"),
				ActivatedAt: timePtr(now), ExpiresAt: timePtr(now)},
			corrupt: true,
		},
		{
			name: "trial without expiry",
			row: ds.License{LicenseType: "trial", IsActive: true, MachineID: strPtr("m1"),
				ActivatedAt: timePtr(now)},
			corrupt: true,
		},
		{
			name:    "unknown type",
			row:     ds.License{LicenseType: "gold", IsActive: true},
			corrupt: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StateOf(&tt.row)
			if tt.corrupt {
				assert.ErrorIs(t, err, ErrCorruptState)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActivateTransitions(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	bound := ActiveBound{MachineID: "m1", ActivatedAt: now.Add(-time.Hour), ExpiresAt: ExpiresAt(TypeTrial, now.Add(-time.Hour))}

	next, changed, err := Activate(ActiveUnbound{}, TypeEducation, "m1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ActiveBound{MachineID: "m1", ActivatedAt: now, ExpiresAt: ExpiresAt(TypeEducation, now)}, next)

	next, changed, err = Activate(bound, TypeTrial, "m1", now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, bound, next, "expiry must not be recomputed")

	_, _, err = Activate(bound, TypeTrial, "m2", now)
	assert.ErrorIs(t, err, ErrAlreadyBound)

	_, _, err = Activate(Revoked{}, TypeTrial, "m1", now)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestActiveBoundExpired(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	s := ActiveBound{MachineID: "m1", ActivatedAt: now, ExpiresAt: ExpiresAt(TypeTrial, now)}

	assert.False(t, s.Expired(now.Add(29*24*time.Hour)))
	assert.True(t, s.Expired(now.Add(31*24*time.Hour)))
	assert.False(t, ActiveBound{MachineID: "m1", ActivatedAt: now}.Expired(now.Add(100*365*24*time.Hour)))
}

func TestApplyRevokedKeepsBinding(t *testing.T) {
	now := time.Now().UTC()
	row := ds.License{LicenseType: "trial", IsActive: true}

	Apply(&row, ActiveBound{MachineID: "m1", ActivatedAt: now, ExpiresAt: ExpiresAt(TypeTrial, now)})
	require.NotNil(t, row.MachineID)
	assert.Equal(t, "m1", *row.MachineID)
	assert.True(t, row.IsActive)

	Apply(&row, Revoke(ActiveBound{}))
	assert.False(t, row.IsActive)
	require.NotNil(t, row.MachineID)
	assert.Equal(t, "m1", *row.MachineID)

	st, err := StateOf(&row)
	require.NoError(t, err)
	assert.Equal(t, Revoked{}, st)
}
