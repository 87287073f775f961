// Package embedtoken issues signed, short-lived tokens for Metabase-style
// static dashboard embedding.
//
// A token carries exactly three claims: the resource reference, the locked
// parameter values and the absolute expiry. The analytics platform verifies the
// HS256 signature with the shared secret and enforces the expiry; the issuer only
// computes it. The secret never leaves this process.
package embedtoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL = 10 * time.Minute

	minSecretLength = 32
)

var (
	ErrMissingSecret   = errors.New("embed secret is not configured")
	ErrWeakSecret      = errors.New("embed secret is too short")
	ErrInvalidSiteURL  = errors.New("invalid embed site url")
	ErrMalformedClaims = errors.New("malformed embed claims")
)

// Resource identifies the embedded object.
type Resource struct {
	Dashboard int64 `json:"dashboard"`
}

// Claims is the signed payload. Only ExpiresAt of the registered claims is set,
// so the encoded form is {"resource":…,"params":…,"exp":…}.
type Claims struct {
	Resource Resource       `json:"resource"`
	Params   map[string]any `json:"params"`
	jwt.RegisteredClaims
}

// Request describes one issuance. Zero IssuedAt means "now", zero TTL means the
// issuer default.
type Request struct {
	DashboardID int64
	Params      map[string]any
	IssuedAt    time.Time
	TTL         time.Duration
}

// Token is the signed credential together with the iframe URL built from it.
type Token struct {
	Value     string
	URL       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Option func(*Issuer)

func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl >= time.Second {
			i.ttl = ttl
		}
	}
}

// WithDisplayFlags replaces the URL fragment appended to every embed URL.
func WithDisplayFlags(flags url.Values) Option {
	return func(i *Issuer) {
		i.fragment = flags.Encode()
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

type Issuer struct {
	siteURL  string
	secret   []byte
	ttl      time.Duration
	fragment string
	now      func() time.Time
}

// NewIssuer validates the site URL and secret. Errors here are configuration
// errors and should stop the process at startup.
func NewIssuer(siteURL, secret string, opts ...Option) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, minSecretLength)
	}

	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSiteURL, siteURL)
	}

	i := &Issuer{
		siteURL:  strings.TrimRight(u.String(), "/"),
		secret:   []byte(secret),
		ttl:      DefaultTTL,
		fragment: url.Values{"bordered": {"true"}, "titled": {"true"}}.Encode(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a fresh token for req. Tokens are never cached: two calls at
// different instants always produce different values.
func (i *Issuer) Issue(req Request) (Token, error) {
	if req.DashboardID <= 0 {
		return Token{}, fmt.Errorf("%w: dashboard id %d", ErrMalformedClaims, req.DashboardID)
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = i.ttl
	}
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		return Token{}, fmt.Errorf("%w: ttl %s", ErrMalformedClaims, ttl)
	}

	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = i.now()
	}
	expiresAt := time.Unix(issuedAt.Unix()+seconds, 0).UTC()

	params := make(map[string]any, len(req.Params))
	for k, v := range req.Params {
		params[k] = v
	}
	if _, err := json.Marshal(params); err != nil {
		return Token{}, fmt.Errorf("%w: params: %v", ErrMalformedClaims, err)
	}

	claims := Claims{
		Resource: Resource{Dashboard: req.DashboardID},
		Params:   params,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("%w: sign: %v", ErrMalformedClaims, err)
	}

	return Token{
		Value:     signed,
		URL:       i.embedURL(signed),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (i *Issuer) embedURL(token string) string {
	u := i.siteURL + "/embed/dashboard/" + token
	if i.fragment != "" {
		u += "#" + i.fragment
	}
	return u
}

// TokenFromURL extracts the token from an embed URL built by Issue.
func TokenFromURL(embedURL string) (string, error) {
	u, err := url.Parse(embedURL)
	if err != nil {
		return "", fmt.Errorf("parse embed url: %w", err)
	}
	token, ok := strings.CutPrefix(u.Path, "/embed/dashboard/")
	if !ok || token == "" || strings.Contains(token, "/") {
		return "", fmt.Errorf("not a dashboard embed url: %q", u.Path)
	}
	return token, nil
}

// String keeps the secret out of logs and %v output.
func (i *Issuer) String() string {
	return fmt.Sprintf("embedtoken.Issuer{site: %s, ttl: %s, secret: [redacted]}", i.siteURL, i.ttl)
}

// ParseToken verifies an HS256 token the way the analytics platform does:
// signature, algorithm and a mandatory, unexpired exp.
func ParseToken(secret, tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}, opts...)

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
