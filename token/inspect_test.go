package token

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only-secret"))
	require.NoError(t, err)
	return raw
}

func TestInspectReadsYggdrasilClaims(t *testing.T) {
	profile := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	issued := time.Unix(1_700_000_000, 0).UTC()
	expires := issued.Add(24 * time.Hour)

	raw := signed(t, Claims{
		SelectedProfile: "069a79f444e94726a5befca90e38aaf5",
		YggdrasilToken:  "a1b2c3",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "account-1",
			Issuer:    "Yggdrasil-Auth",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	info, err := Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "account-1", info.Subject)
	assert.Equal(t, "Yggdrasil-Auth", info.Issuer)
	assert.Equal(t, profile, info.SelectedProfile)
	assert.True(t, info.IssuedAt.Equal(issued))
	assert.True(t, info.ExpiresAt.Equal(expires))
	assert.True(t, info.HasExpiry())
	assert.False(t, info.Expired(issued.Add(time.Hour)))
	assert.True(t, info.Expired(expires))
}

func TestInspectIgnoresSignature(t *testing.T) {
	raw := signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "s"}})
	tampered := raw[:len(raw)-4] + "AAAA"

	info, err := Inspect(tampered)
	require.NoError(t, err)
	assert.Equal(t, "s", info.Subject)
	assert.False(t, info.HasExpiry())
	assert.False(t, info.Expired(time.Now()))
}

func TestInspectOpaqueToken(t *testing.T) {
	_, err := Inspect("8e4f0c0c2f6b4d2c9b7f5b1e0a1d2c3b")
	assert.ErrorIs(t, err, ErrOpaqueToken)

	_, err = Inspect("")
	assert.ErrorIs(t, err, ErrOpaqueToken)
}

func TestInspectMalformedToken(t *testing.T) {
	_, err := Inspect("not.a.jwt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedToken))
}

func TestInspectBadProfileClaim(t *testing.T) {
	raw := signed(t, Claims{SelectedProfile: "not-a-uuid"})
	_, err := Inspect(raw)
	assert.True(t, errors.Is(err, ErrMalformedToken))
}

func TestNilInfoHasNoExpiry(t *testing.T) {
	var info *Info
	assert.False(t, info.HasExpiry())
	assert.False(t, info.Expired(time.Now()))
}
