package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/auth"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()
	privateKey, publicKey, err := auth.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	publicPEM, err = auth.PublicKeyToPEM(publicKey)
	require.NoError(t, err)
	return auth.PrivateKeyToPEM(privateKey), publicPEM
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	privatePEM, publicPEM := newKeyPair(t)
	issuer, err := auth.NewTokenIssuer(privatePEM, "chit-dashboard", time.Hour)
	require.NoError(t, err)
	verifier, err := auth.NewTokenVerifier(publicPEM, "chit-dashboard")
	require.NoError(t, err)

	merchantID := uuid.New()
	token, err := issuer.Issue(merchantID, "owner@example.com")
	require.NoError(t, err)

	session, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, merchantID, session.MerchantID)
	assert.Equal(t, "owner@example.com", session.Subject)
	assert.NotEmpty(t, session.TokenID)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	privatePEM, publicPEM := newKeyPair(t)
	otherPrivatePEM, _ := newKeyPair(t)

	verifier, err := auth.NewTokenVerifier(publicPEM, "chit-dashboard")
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		issuer, err := auth.NewTokenIssuer(otherPrivatePEM, "chit-dashboard", time.Hour)
		require.NoError(t, err)
		token, err := issuer.Issue(uuid.New(), "x")
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		issuer, err := auth.NewTokenIssuer(privatePEM, "someone-else", time.Hour)
		require.NoError(t, err)
		token, err := issuer.Issue(uuid.New(), "x")
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		issuer, err := auth.NewTokenIssuer(privatePEM, "chit-dashboard", -time.Minute)
		require.NoError(t, err)
		token, err := issuer.Issue(uuid.New(), "x")
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})

	t.Run("hmac token", func(t *testing.T) {
		claims := auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "chit-dashboard",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			MerchantID: uuid.NewString(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(publicPEM)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})

	t.Run("missing merchant", func(t *testing.T) {
		privateKey, err := auth.ParsePrivateKeyFromPEM(privatePEM)
		require.NoError(t, err)
		claims := auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "chit-dashboard",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc.def", "abc.def", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := auth.BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
