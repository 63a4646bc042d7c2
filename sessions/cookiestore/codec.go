package cookiestore

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/ivyedsg/repify-web/internal/errors"
	"github.com/ivyedsg/repify-web/sessions"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	keyLength = 32

	// expiredCookieGrace keeps a cookie decodable shortly past the session ceiling
	// so the transition can tag it RefreshTokenExpired instead of dropping it silently.
	expiredCookieGrace = 6 * time.Hour
)

var (
	signingInfo    = []byte("repify session token signing v1")
	encryptionInfo = []byte("repify session token encryption v1")
	additionalData = []byte("repify-session-v1")
)

// tokenClaims is the signed wire form of a sessions.Token.
// Timestamps are Unix nanoseconds so a round trip is lossless.
type tokenClaims struct {
	Email        string `json:"email"`
	University   string `json:"uni,omitempty"`
	Career       string `json:"career,omitempty"`
	AccessToken  string `json:"at"`
	RefreshToken string `json:"rt"`
	AccessExp    int64  `json:"at_exp"`
	RefreshExp   int64  `json:"rt_exp"`
	Error        string `json:"err,omitempty"`
	jwt.RegisteredClaims
}

// Codec turns a session token into an opaque cookie value and back.
// The token is signed as an HS256 JWT and the JWT is then sealed with
// XChaCha20-Poly1305, so the browser can neither read nor alter it.
type Codec struct {
	signingKey []byte
	aead       cipher.AEAD
}

// NewCodec derives independent signing and encryption keys from secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}
	signingKey, err := deriveKey(secret, signingInfo)
	if err != nil {
		return nil, err
	}
	encryptionKey, err := deriveKey(secret, encryptionInfo)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Codec{
		signingKey: signingKey,
		aead:       aead,
	}, nil
}

func deriveKey(secret, info []byte) ([]byte, error) {
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Encode signs and seals t.
func (c *Codec) Encode(t *sessions.Token, now time.Time) (string, error) {
	claims := tokenClaims{
		Email:        t.Email,
		University:   t.University,
		Career:       t.Career,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		AccessExp:    t.AccessTokenExpiresAt.UnixNano(),
		RefreshExp:   t.RefreshTokenExpiresAt.UnixNano(),
		Error:        string(t.Error),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   t.UserID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(t.RefreshTokenExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(signed)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(signed), additionalData)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens and verifies a cookie value produced by Encode.
// Any tampering, a foreign key, or a value long past its ceiling yields ErrInvalidSession.
func (c *Codec) Decode(value string, now time.Time) (*sessions.Token, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "decode cookie")
	}
	if len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "cookie too short")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	signed, err := c.aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "open cookie")
	}

	var claims tokenClaims
	_, err = jwt.ParseWithClaims(string(signed), &claims,
		func(token *jwt.Token) (any, error) { return c.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(expiredCookieGrace),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidSession, err)
	}

	return &sessions.Token{
		UserID:                claims.Subject,
		Email:                 claims.Email,
		University:            claims.University,
		Career:                claims.Career,
		AccessToken:           claims.AccessToken,
		RefreshToken:          claims.RefreshToken,
		AccessTokenExpiresAt:  time.Unix(0, claims.AccessExp).UTC(),
		RefreshTokenExpiresAt: time.Unix(0, claims.RefreshExp).UTC(),
		Error:                 sessions.ErrorTag(claims.Error),
	}, nil
}
