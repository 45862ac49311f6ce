package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
)

// VerifierConfig selects accepted signing keys and claim checks.
// At least one of HMACSecret or RSAPublicKeyPEM must be set.
type VerifierConfig struct {
	HMACSecret      []byte
	RSAPublicKeyPEM []byte
	Issuer          string
	Audience        string
	Leeway          time.Duration
}

// Verifier validates bearer JWTs and resolves them into identities.
// It is immutable after construction and safe for concurrent use.
type Verifier struct {
	hmacKey []byte
	rsaKey  *rsa.PublicKey
	parser  *jwt.Parser
}

// NewVerifier constructs a Verifier from cfg.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{hmacKey: cfg.HMACSecret}
	var methods []string
	if len(cfg.HMACSecret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if len(cfg.RSAPublicKeyPEM) > 0 {
		key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.RSAPublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse rsa public key: %w", err)
		}
		v.rsaKey = key
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if len(methods) == 0 {
		return nil, errors.New("verifier: no signing key configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

// Verify checks signature and registered claims and returns the raw claims.
func (v *Verifier) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", errs.ErrUnauthenticated)
	}
	return claims, nil
}

// Identify verifies token and resolves its claims into an Identity.
func (v *Verifier) Identify(token string) (model.Identity, error) {
	claims, err := v.Verify(token)
	if err != nil {
		return model.Identity{}, err
	}
	return Resolve(claims)
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.hmacKey) == 0 {
			return nil, errors.New("unexpected signing method")
		}
		return v.hmacKey, nil
	case *jwt.SigningMethodRSA:
		if v.rsaKey == nil {
			return nil, errors.New("unexpected signing method")
		}
		return v.rsaKey, nil
	default:
		return nil, errors.New("unexpected signing method")
	}
}
