package token

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs session tokens and supplies the key that verifies them
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
	GetVerificationKey(token *jwt.Token) (any, error)
	GetSigningMethod() jwt.SigningMethod
}

// HMACSigner signs with HS256. Tokens carry a kid derived from the secret so tokens minted
// before a JWT_SECRET rotation are rejected with a clear error.
type HMACSigner struct {
	secret []byte
	keyID  string
}

var _ Signer = (*HMACSigner)(nil)

func NewHMACSigner(secret string) *HMACSigner {
	sum := sha256.Sum256([]byte(secret))
	return &HMACSigner{
		secret: []byte(secret),
		keyID:  hex.EncodeToString(sum[:4]),
	}
}

// KeyID identifies the secret without revealing it
func (h *HMACSigner) KeyID() string {
	return h.keyID
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = h.keyID
	signed, err := tok.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "[HMACSigner Sign]")
	}
	return signed, nil
}

func (h *HMACSigner) GetVerificationKey(tok *jwt.Token) (any, error) {
	if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", tok.Header["alg"])
	}
	if kid, ok := tok.Header["kid"].(string); ok && kid != h.keyID {
		return nil, errors.Errorf("unknown key id %q", kid)
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
