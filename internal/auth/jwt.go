package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
)

// Claims are the JWT claims of a merchant dashboard token
type Claims struct {
	jwt.RegisteredClaims
	MerchantID string `json:"merchant_id"`
}

// TokenIssuer signs merchant tokens. The service itself only verifies
// tokens; the issuer backs local tooling such as cmd/seed.
type TokenIssuer struct {
	privateKey *rsa.PrivateKey
	issuer     string
	expiry     time.Duration
}

// NewTokenIssuer creates a token issuer from a PEM encoded RSA private key
func NewTokenIssuer(privateKeyPEM []byte, issuer string, expiry time.Duration) (*TokenIssuer, error) {
	privateKey, err := ParsePrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &TokenIssuer{privateKey: privateKey, issuer: issuer, expiry: expiry}, nil
}

// Issue signs a token for merchantID
func (ti *TokenIssuer) Issue(merchantID uuid.UUID, subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		MerchantID: merchantID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(ti.privateKey)
}

// TokenVerifier validates merchant tokens and turns them into sessions
type TokenVerifier struct {
	publicKey *rsa.PublicKey
	issuer    string
}

// NewTokenVerifier creates a verifier from a PEM encoded RSA public key.
// An empty issuer accepts tokens from any issuer.
func NewTokenVerifier(publicKeyPEM []byte, issuer string) (*TokenVerifier, error) {
	publicKey, err := ParsePublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &TokenVerifier{publicKey: publicKey, issuer: issuer}, nil
}

// Verify validates a bearer token and returns the session it carries
func (tv *TokenVerifier) Verify(tokenString string) (domain.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if tv.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tv.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tv.publicKey, nil
	}, opts...)
	if err != nil {
		return domain.Session{}, domain.WrapError(domain.ErrorCodeAuthInvalid, "invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Session{}, domain.ErrAuthInvalid
	}

	merchantID, err := uuid.Parse(claims.MerchantID)
	if err != nil || merchantID == uuid.Nil {
		return domain.Session{}, domain.NewDomainError(domain.ErrorCodeAuthInvalid, "token has no valid merchant_id")
	}

	return domain.Session{
		MerchantID: merchantID,
		Subject:    claims.Subject,
		TokenID:    claims.ID,
	}, nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// GenerateRSAKeyPair generates a new RSA key pair
func GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	return privateKey, &privateKey.PublicKey, nil
}

// PrivateKeyToPEM converts an RSA private key to PEM format
func PrivateKeyToPEM(privateKey *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
}

// PublicKeyToPEM converts an RSA public key to PEM format
func PublicKeyToPEM(publicKey *rsa.PublicKey) ([]byte, error) {
	publicKeyBytes, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyBytes}), nil
}

// ParsePrivateKeyFromPEM parses a PKCS1 or PKCS8 RSA private key
func ParsePrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return privateKey, nil
	}

	// Try PKCS8 format
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	privateKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an RSA private key")
	}
	return privateKey, nil
}

// ParsePublicKeyFromPEM parses an RSA public key from PEM format
func ParsePublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	publicKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return publicKey, nil
}
