package token

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrOpaqueToken is returned for access tokens that are not JWTs.
	ErrOpaqueToken = errors.New("opaque access token")
	// ErrMalformedToken is returned for JWT-shaped tokens whose claims cannot be read.
	ErrMalformedToken = errors.New("malformed access token")
)

// Claims is the claim set issued by Yggdrasil servers.
type Claims struct {
	SelectedProfile string `json:"spr,omitempty"`
	YggdrasilToken  string `json:"yggt,omitempty"`
	jwt.RegisteredClaims
}

// Info is the decoded, unverified view of an access token.
type Info struct {
	Subject         string
	Issuer          string
	SelectedProfile uuid.UUID
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (i *Info) HasExpiry() bool {
	return i != nil && !i.ExpiresAt.IsZero()
}

// Expired reports whether the token's exp claim is at or before now.
// Tokens without an expiry never report expired.
func (i *Info) Expired(now time.Time) bool {
	if !i.HasExpiry() {
		return false
	}
	return !now.Before(i.ExpiresAt)
}

// Inspect decodes the claims of raw without verifying its signature.
func Inspect(raw string) (*Info, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return nil, ErrOpaqueToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse access token claims"), ErrMalformedToken)
	}

	info := &Info{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.SelectedProfile != "" {
		id, err := uuid.Parse(claims.SelectedProfile)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "parse selected profile %q", claims.SelectedProfile), ErrMalformedToken)
		}
		info.SelectedProfile = id
	}

	return info, nil
}
