package authclient

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// CredentialDecoder turns a stored credential into claims. Implementations
// never panic; anything that can't be decoded is ErrTokenMalformed.
type CredentialDecoder interface {
	Decode(raw Credential) (*CredentialClaims, error)
}

// CredentialDecoderFunc adapts a function into a CredentialDecoder.
type CredentialDecoderFunc func(raw Credential) (*CredentialClaims, error)

// Decode satisfies the CredentialDecoder interface.
func (f CredentialDecoderFunc) Decode(raw Credential) (*CredentialClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(raw)
}

type jwtDecoder struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewCredentialDecoder returns a JWT decoder. With a nil keyfunc the payload
// is decoded without verifying the signature, which is what a client holding
// someone else's token can do. Expiry is never enforced here so callers can
// compare against their own clock.
func NewCredentialDecoder(kf jwt.Keyfunc) CredentialDecoder {
	return &jwtDecoder{
		keyfunc: kf,
		parser:  jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
}

func (d *jwtDecoder) Decode(raw Credential) (*CredentialClaims, error) {
	if raw.IsZero() {
		return nil, ErrTokenMalformed
	}

	claims := &CredentialClaims{}
	var err error
	if d.keyfunc == nil {
		_, _, err = d.parser.ParseUnverified(raw.String(), claims)
	} else {
		_, err = d.parser.ParseWithClaims(raw.String(), claims, d.keyfunc)
	}

	if err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	if claims.ExpiresAt == nil {
		return nil, withCause(ErrTokenMalformed, nil, map[string]any{"claim": "exp"})
	}

	return claims, nil
}

// SigningKey describes a verification key
type SigningKey struct {
	JWTAlg string
	Key    any
}

// NewStaticKeyfunc builds a keyfunc from keys indexed by kid. Tokens must
// carry a matching kid header.
func NewStaticKeyfunc(keys map[string]SigningKey) jwt.Keyfunc {
	givenKeys := make(map[string]keyfunc.GivenKey, len(keys))
	for kid, key := range keys {
		givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
			Algorithm: key.JWTAlg,
		})
	}
	return keyfunc.NewGiven(givenKeys).Keyfunc
}

// NewJWKSKeyfunc fetches a JWK set and keeps it refreshed in the background.
// Call the returned stop function to end the refresh goroutine.
func NewJWKSKeyfunc(jwksURL string, logger Logger) (jwt.Keyfunc, func(), error) {
	logger = normalizeLogger(logger)

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, func() {}, errors.Wrap(err, errors.CategoryOperation, "failed to fetch JWK set").
			WithMetadata(map[string]any{"url": jwksURL})
	}

	return jwks.Keyfunc, jwks.EndBackground, nil
}
