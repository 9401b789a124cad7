package devbackend

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var (
	ErrTokenMalformed = errors.New("missing or malformed token", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest)
	ErrTokenInvalid = errors.New("invalid or expired token", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
)

// Claims is the payload minted for logged in users
type Claims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid"`
	Role string `json:"role"`
}

// TokenService mints and validates HS256 tokens
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	now        func() time.Time
}

// NewTokenService creates a token service. ttl is the token lifetime.
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		now:        time.Now,
	}
}

// WithClock injects a custom clock
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Generate mints a token for user
func (ts *TokenService) Generate(user *User) (string, error) {
	now := ts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:  user.ID.String(),
		Role: user.Role,
	}
	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims with the configured key
func (ts *TokenService) SignClaims(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

// Validate parses and verifies a token
func (ts *TokenService) Validate(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(ts.now), jwt.WithExpirationRequired()}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).
			WithCode(ErrTokenInvalid.Code)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// bearerToken pulls the token out of an Authorization header value
func bearerToken(header, scheme string) (string, error) {
	scheme = strings.TrimSpace(scheme)
	l := len(scheme)
	if l == 0 {
		return "", ErrTokenMalformed
	}
	if len(header) > l+1 && strings.EqualFold(header[:l], scheme) {
		if token := strings.TrimSpace(header[l:]); token != "" {
			return token, nil
		}
	}
	return "", ErrTokenMalformed
}
