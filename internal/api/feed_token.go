package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidFeedToken = errors.New("invalid feed token")

// feedTokenSigner issues the HS256 tokens that authorize calendar feed
// subscriptions.
type feedTokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newFeedTokenSigner(secret []byte, now func() time.Time) *feedTokenSigner {
	return &feedTokenSigner{secret: secret, ttl: feedTokenTTL, now: now}
}

func (signer *feedTokenSigner) Sign() (string, time.Time, error) {
	now := signer.now()
	expiresAt := now.Add(signer.ttl)
	claims := feedClaims{
		Purpose: feedTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (signer *feedTokenSigner) Verify(raw string) error {
	claims := &feedClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return signer.secret, nil
	}, jwt.WithTimeFunc(signer.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return errInvalidFeedToken
	}
	if claims.Purpose != feedTokenPurpose {
		return errInvalidFeedToken
	}
	return nil
}
