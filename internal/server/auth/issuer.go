// Package auth mints and decodes the access/refresh token pair.
//
// Both token kinds are compact JWTs signed with one shared HMAC secret. The
// correlation id of a token lives in its "kid" header: for access tokens it
// is the user's current signature, for refresh tokens a fresh UUID that also
// keys the server-side refresh record. Decoding never consults a store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const headerKeyID = "kid"

// UserClaims is the caller-visible part of an access token payload.
type UserClaims struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username,omitempty"`
	IsSuperuser bool   `json:"is_superuser"`
}

// AccessClaims is the full access token payload.
type AccessClaims struct {
	UserClaims
	jwt.RegisteredClaims
}

// Pair is the result of MintPair.
type Pair struct {
	Access           string
	Refresh          string
	AccessID         string
	RefreshID        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type Issuer struct {
	method     jwt.SigningMethod
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer accepts the HMAC algorithms only (HS256, HS384, HS512).
func NewIssuer(secret []byte, algorithm string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Issuer{
		method:     method,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// MintPair signs an access token carrying claims with accessID in its
// header, and a refresh token carrying only an expiry with refreshID in
// its header.
func (i *Issuer) MintPair(claims UserClaims, accessID, refreshID string) (*Pair, error) {
	if claims.UserID == "" {
		return nil, errors.New("access claims without user id")
	}
	if accessID == "" || refreshID == "" {
		return nil, errors.New("empty correlation id")
	}

	now := i.now()
	accessExp := now.Add(i.accessTTL)
	refreshExp := now.Add(i.refreshTTL)

	access := jwt.NewWithClaims(i.method, AccessClaims{
		UserClaims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	access.Header[headerKeyID] = accessID
	accessStr, err := access.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(i.method, jwt.MapClaims{
		"exp": jwt.NewNumericDate(refreshExp),
	})
	refresh.Header[headerKeyID] = refreshID
	refreshStr, err := refresh.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &Pair{
		Access:           accessStr,
		Refresh:          refreshStr,
		AccessID:         accessID,
		RefreshID:        refreshID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
}

func (i *Issuer) keyFunc(*jwt.Token) (interface{}, error) {
	return i.secret, nil
}

// DecodeAccess verifies an access token and returns its claims together with
// its correlation id. Errors are common.ErrTokenExpired or wrap
// common.ErrInvalidToken.
func (i *Issuer) DecodeAccess(tokenString string) (*AccessClaims, string, error) {
	claims := &AccessClaims{}
	token, err := i.parser().ParseWithClaims(tokenString, claims, i.keyFunc)
	if err != nil {
		return nil, "", mapParseError(err)
	}
	if claims.UserID == "" {
		return nil, "", fmt.Errorf("%w: access token without user_id", common.ErrInvalidToken)
	}
	kid, err := keyID(token)
	if err != nil {
		return nil, "", err
	}
	return claims, kid, nil
}

// DecodeRefresh verifies a refresh token and returns its correlation id and
// expiry. A token with any claim besides exp is rejected, so an access token
// can never be presented as a refresh token.
func (i *Issuer) DecodeRefresh(tokenString string) (string, time.Time, error) {
	claims := jwt.MapClaims{}
	token, err := i.parser().ParseWithClaims(tokenString, claims, i.keyFunc)
	if err != nil {
		return "", time.Time{}, mapParseError(err)
	}
	if len(claims) != 1 {
		return "", time.Time{}, fmt.Errorf("%w: unexpected refresh token claims", common.ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, fmt.Errorf("%w: refresh token without exp", common.ErrInvalidToken)
	}
	kid, err := keyID(token)
	if err != nil {
		return "", time.Time{}, err
	}
	return kid, exp.Time, nil
}

// ExtractCorrelationID reads the kid header without checking the signature
// or expiry.
func ExtractCorrelationID(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	return keyID(token)
}

func keyID(token *jwt.Token) (string, error) {
	kid, _ := token.Header[headerKeyID].(string)
	if kid == "" {
		return "", fmt.Errorf("%w: missing kid header", common.ErrInvalidToken)
	}
	return kid, nil
}

func mapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return common.ErrTokenExpired
	}
	return fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
}
