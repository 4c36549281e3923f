// AngelaMos | 2026
// seal.go

package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/nexxstore/storefront/internal/config"
	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/user"
)

const sessionClaim = "session"

// Sealer signs the persisted session so a blob edited on disk or in Redis
// is rejected on restore instead of granting a forged role or balance.
type Sealer struct {
	privateKey jwk.Key
	publicKey  jwk.Key
	config     config.SealConfig
	now        func() time.Time
}

func NewSealer(cfg config.SealConfig) (*Sealer, error) {
	privateKeyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	privateKey, err := jwk.ParseKey(privateKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return newSealer(privateKey, cfg)
}

// NewEphemeralSealer uses a fresh in-memory key. Sessions it seals do not
// survive a restart.
func NewEphemeralSealer(cfg config.SealConfig) (*Sealer, error) {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	privateKey, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("import private key: %w", err)
	}

	return newSealer(privateKey, cfg)
}

func newSealer(privateKey jwk.Key, cfg config.SealConfig) (*Sealer, error) {
	if setErr := privateKey.Set(jwk.AlgorithmKey, jwa.ES256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	// The key ID follows the key, so a restart keeps verifying old seals.
	thumbprint, err := publicKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("key thumbprint: %w", err)
	}
	keyID := base64.RawURLEncoding.EncodeToString(thumbprint)[:12]
	for _, k := range []jwk.Key{privateKey, publicKey} {
		if setErr := k.Set(jwk.KeyIDKey, keyID); setErr != nil {
			return nil, fmt.Errorf("set key id: %w", setErr)
		}
	}

	return &Sealer{
		privateKey: privateKey,
		publicKey:  publicKey,
		config:     cfg,
		now:        time.Now,
	}, nil
}

func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	jwkPrivate, err := jwk.Import(privateKey)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}

	if setErr := jwkPrivate.Set(jwk.AlgorithmKey, jwa.ES256()); setErr != nil {
		return fmt.Errorf("set algorithm: %w", setErr)
	}

	privatePEM, err := jwk.Pem(jwkPrivate)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	if mkErr := os.MkdirAll(filepath.Dir(privateKeyPath), 0o700); mkErr != nil {
		return fmt.Errorf("create key directory: %w", mkErr)
	}

	if writeErr := os.WriteFile(privateKeyPath, privatePEM, 0o600); writeErr != nil {
		return fmt.Errorf("write private key: %w", writeErr)
	}

	if publicKeyPath == "" {
		return nil
	}

	jwkPublic, err := jwkPrivate.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	publicPEM, err := jwk.Pem(jwkPublic)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	//nolint:gosec // G306: public key is intentionally world-readable
	if writeErr := os.WriteFile(publicKeyPath, publicPEM, 0o644); writeErr != nil {
		return fmt.Errorf("write public key: %w", writeErr)
	}

	return nil
}

// Seal encodes the redacted user into a compact ES256 JWS.
func (s *Sealer) Seal(u user.User) (string, error) {
	payload, err := json.Marshal(u.Redacted())
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	now := s.now()
	builder := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(s.config.Issuer).
		Audience([]string{s.config.Audience}).
		Subject(u.ID).
		IssuedAt(now).
		Claim(sessionClaim, string(payload))
	if s.config.MaxAge > 0 {
		builder = builder.Expiration(now.Add(s.config.MaxAge))
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build session token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), s.privateKey))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return string(signed), nil
}

// Open verifies a sealed session and returns the user it carries.
func (s *Sealer) Open(sealed string) (user.User, error) {
	token, err := jwt.Parse(
		[]byte(sealed),
		jwt.WithKey(jwa.ES256(), s.publicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Audience),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return user.User{}, fmt.Errorf("open session: %w", core.ErrTokenExpired)
		}
		return user.User{}, fmt.Errorf("open session: %w", core.ErrTokenInvalid)
	}

	var payload string
	if err := token.Get(sessionClaim, &payload); err != nil {
		return user.User{}, fmt.Errorf(
			"open session: missing session claim: %w",
			core.ErrTokenInvalid,
		)
	}

	var u user.User
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return user.User{}, fmt.Errorf(
			"open session: decode user: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" || subject != u.ID {
		return user.User{}, fmt.Errorf(
			"open session: subject mismatch: %w",
			core.ErrTokenInvalid,
		)
	}

	return u, nil
}
