package security

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/securehealth/identity/internal/core/port"
)

const (
	AlgorithmHS256 = "HS256"
	AlgorithmRS256 = "RS256"

	minHMACSecretBytes = 32
)

var (
	// ErrInvalidToken indicates a token failed parsing or signature validation.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrSigningKey indicates the signing key could not be loaded or used.
	ErrSigningKey = errors.New("jwt: signing key unavailable")
)

// AccessTokenClaims is the payload of access tokens.
type AccessTokenClaims struct {
	Role   string `json:"role"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type signer interface {
	method() jwt.SigningMethod
	sign(token *jwt.Token) (string, error)
	verificationKey(token *jwt.Token) (any, error)
	jwks() []map[string]string
}

// TokenIssuer signs access tokens and mints opaque refresh tokens.
type TokenIssuer struct {
	signer signer
	issuer string
	now    func() time.Time
}

// TokenIssuerOption customises a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithIssuer sets the iss claim.
func WithIssuer(issuer string) TokenIssuerOption {
	return func(t *TokenIssuer) {
		t.issuer = strings.TrimSpace(issuer)
	}
}

// WithTokenClock overrides the clock used for iat/exp.
func WithTokenClock(now func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewHMACTokenIssuer builds an HS256 issuer from a base64 encoded secret.
func NewHMACTokenIssuer(encodedSecret string, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: decode secret: %v", ErrSigningKey, err)
	}
	if len(secret) < minHMACSecretBytes {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrSigningKey, minHMACSecretBytes)
	}
	return newTokenIssuer(&hmacSigner{secret: secret}, opts...), nil
}

// NewRSATokenIssuer builds an RS256 issuer backed by provider.
func NewRSATokenIssuer(provider KeyProvider, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: key provider not configured", ErrSigningKey)
	}
	return newTokenIssuer(&rsaSigner{provider: provider}, opts...), nil
}

func newTokenIssuer(s signer, opts ...TokenIssuerOption) *TokenIssuer {
	issuer := &TokenIssuer{
		signer: s,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// SignAccessToken signs a JWT with sub=subject, the supplied claims, iat=now and exp=now+ttl.
func (t *TokenIssuer) SignAccessToken(subject string, claims port.AccessClaims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("jwt: ttl must be positive")
	}

	now := t.now().UTC()
	payload := &AccessTokenClaims{
		Role:   claims.Role,
		UserID: claims.AccountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := t.signer.sign(jwt.NewWithClaims(t.signer.method(), payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return signed, nil
}

// RandomOpaqueToken returns byteLen random bytes encoded as raw URL base64.
func (t *TokenIssuer) RandomOpaqueToken(byteLen int) (string, error) {
	return GenerateSecureToken(byteLen)
}

// Parse validates signature, algorithm and expiry and returns the claims.
func (t *TokenIssuer) Parse(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{t.signer.method().Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithIssuedAt(),
	}
	if t.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, t.signer.verificationKey, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SelfTest signs and parses a probe token so key problems surface at startup.
func (t *TokenIssuer) SelfTest() error {
	probe, err := t.SignAccessToken("self-test", port.AccessClaims{AccountID: "self-test"}, time.Minute)
	if err != nil {
		return err
	}
	if _, err := t.Parse(probe); err != nil {
		return fmt.Errorf("%w: probe verification failed: %v", ErrSigningKey, err)
	}
	return nil
}

// Algorithm returns the JWS algorithm name.
func (t *TokenIssuer) Algorithm() string {
	return t.signer.method().Alg()
}

// JWKS renders the public verification keys. HS256 issuers publish an empty set.
func (t *TokenIssuer) JWKS() ([]byte, error) {
	keys := t.signer.jwks()
	if keys == nil {
		keys = []map[string]string{}
	}
	return json.Marshal(map[string]any{"keys": keys})
}

type hmacSigner struct {
	secret []byte
}

func (s *hmacSigner) method() jwt.SigningMethod { return jwt.SigningMethodHS256 }

func (s *hmacSigner) sign(token *jwt.Token) (string, error) {
	return token.SignedString(s.secret)
}

func (s *hmacSigner) verificationKey(*jwt.Token) (any, error) {
	return s.secret, nil
}

func (s *hmacSigner) jwks() []map[string]string { return nil }

type rsaSigner struct {
	provider KeyProvider
}

func (s *rsaSigner) method() jwt.SigningMethod { return jwt.SigningMethodRS256 }

func (s *rsaSigner) sign(token *jwt.Token) (string, error) {
	kid, key, err := s.provider.SigningKey()
	if err != nil {
		return "", err
	}
	token.Header["kid"] = kid
	return token.SignedString(key)
}

func (s *rsaSigner) verificationKey(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if strings.TrimSpace(kid) == "" {
		return nil, errors.New("missing kid header")
	}
	return s.provider.VerificationKey(kid)
}

func (s *rsaSigner) jwks() []map[string]string {
	published := s.provider.VerificationKeys()
	keys := make([]map[string]string, 0, len(published))
	for kid, key := range published {
		if key == nil {
			continue
		}
		keys = append(keys, buildJWK(kid, key))
	}
	return keys
}

func buildJWK(kid string, key *rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"use": "sig",
		"alg": AlgorithmRS256,
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

var _ port.TokenIssuer = (*TokenIssuer)(nil)
