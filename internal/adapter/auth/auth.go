// Package auth verifies bearer tokens issued by the Auth0 tenant.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

var ErrMissingSubject = errors.New("token has no subject")

// Verifier checks a raw bearer token and returns its "sub" claim.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier accepts RS256 tokens whose issuer and audience match.
type JWTVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

func NewJWTVerifier(kf jwt.Keyfunc, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{
		keyfunc: kf,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty token")
	}

	var claims jwt.RegisteredClaims
	if _, err := v.parser.ParseWithClaims(raw, &claims, v.keyfunc); err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

const (
	jwksRefreshInterval = time.Hour
	jwksHTTPTimeout     = 10 * time.Second
	// Unknown key IDs trigger a refetch at most 5 times a minute.
	jwksUnknownKIDRate = time.Minute / 5
)

// NewJWKSVerifier fetches signing keys from jwksURL, refreshes them hourly
// and refetches on unknown key IDs under a rate limit. ctx bounds the
// background refresh.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, audience string) (*JWTVerifier, error) {
	u, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL: %w", err)
	}

	storage, err := jwkset.NewStorageFromHTTP(u, jwkset.HTTPClientStorageOptions{
		Ctx:                       ctx,
		HTTPTimeout:               jwksHTTPTimeout,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(ctx context.Context, err error) {
			slog.ErrorContext(ctx, "Failed to refresh JWKS", "url", jwksURL, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS storage: %w", err)
	}

	client, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{jwksURL: storage},
		RefreshUnknownKID: rate.NewLimiter(rate.Every(jwksUnknownKIDRate), 1),
		RateLimitWaitMax:  time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: client})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}

	return NewJWTVerifier(kf.Keyfunc, issuer, audience), nil
}
