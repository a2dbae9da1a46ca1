package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

func fixedJitter(days int) JitterFunc {
	return func(minDays, maxDays int) int { return days }
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		code       ExpiryCode
		jitterDays int
		wantStatus Status
		wantExpiry time.Time
	}{
		{ExpiryCodeActive, 45, StatusValid, now.Add(45 * day)},
		{ExpiryCodeAlmostExpired, 7, StatusAlmostExpired, now.Add(7 * day)},
		{ExpiryCodeExpired, 99, StatusExpired, now.Add(-day)},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			d, err := DeriveStatus(tc.code, now, nil, fixedJitter(tc.jitterDays))
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, d.Status)
			assert.Equal(t, tc.wantExpiry, d.ExpiresAt)
		})
	}
}

func TestDeriveStatus_JitterRanges(t *testing.T) {
	var gotMin, gotMax [2]int
	record := func(idx int) JitterFunc {
		return func(minDays, maxDays int) int {
			gotMin[idx], gotMax[idx] = minDays, maxDays
			return minDays
		}
	}

	_, err := DeriveStatus(ExpiryCodeActive, now, nil, record(0))
	require.NoError(t, err)
	_, err = DeriveStatus(ExpiryCodeAlmostExpired, now, nil, record(1))
	require.NoError(t, err)

	assert.Equal(t, [2]int{31, 1}, gotMin)
	assert.Equal(t, [2]int{60, 30}, gotMax)
}

func TestDeriveStatus_RandomJitterStaysInBounds(t *testing.T) {
	for range 500 {
		d, err := DeriveStatus(ExpiryCodeActive, now, nil, nil)
		require.NoError(t, err)
		assert.False(t, d.ExpiresAt.Before(now.Add(31*day)))
		assert.False(t, d.ExpiresAt.After(now.Add(60*day)))

		d, err = DeriveStatus(ExpiryCodeAlmostExpired, now, nil, nil)
		require.NoError(t, err)
		assert.False(t, d.ExpiresAt.Before(now.Add(1*day)))
		assert.False(t, d.ExpiresAt.After(now.Add(30*day)))
	}
}

func TestDeriveStatus_ProviderExpiryWins(t *testing.T) {
	provided := now.Add(12 * day)

	d, err := DeriveStatus(ExpiryCodeAlmostExpired, now, &provided, fixedJitter(3))
	require.NoError(t, err)
	assert.Equal(t, StatusAlmostExpired, d.Status)
	assert.Equal(t, provided, d.ExpiresAt)

	zero := time.Time{}
	d, err = DeriveStatus(ExpiryCodeActive, now, &zero, fixedJitter(40))
	require.NoError(t, err)
	assert.Equal(t, now.Add(40*day), d.ExpiresAt, "zero provider date is ignored")
}

func TestDeriveStatus_UnknownCode(t *testing.T) {
	for _, code := range []ExpiryCode{"", "3", "-1", "expired"} {
		_, err := DeriveStatus(code, now, nil, fixedJitter(1))
		var unknown *UnknownProviderCodeError
		require.True(t, errors.As(err, &unknown), "code %q", code)
		assert.Equal(t, string(code), unknown.Code)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("almost_expired")
	require.NoError(t, err)
	assert.Equal(t, StatusAlmostExpired, s)

	_, err = ParseStatus("revoked")
	assert.Error(t, err)
}

func TestRecord_NeedsRenewal(t *testing.T) {
	assert.True(t, (&Record{Status: StatusExpired}).NeedsRenewal())
	assert.True(t, (&Record{Status: StatusAlmostExpired}).NeedsRenewal())
	assert.False(t, (&Record{Status: StatusValid}).NeedsRenewal())
	assert.False(t, (&Record{Status: StatusUnknown}).NeedsRenewal())
}
