package auth

import (
	"errors"
	"time"

	"github.com/contextchat/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Machine-readable rejection reasons surfaced to live-channel clients so
// they can decide between prompting a re-login and retrying blindly.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
)

var (
	// ErrMissingToken means no bearer credential was presented at all.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken means the credential failed signature verification
	// or is expired.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims defines the structure of the data stored inside the JWT.
// The user ID travels in the registered Subject claim.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens and resolves them to a Principal.
// Resolution is pure: no side effects, no caching.
type Verifier struct {
	secret        []byte
	tokenDuration time.Duration
}

// NewVerifier creates a Verifier signing and checking tokens with the
// given HMAC secret. tokenDuration only applies to tokens issued here.
func NewVerifier(secret string, tokenDuration time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tokenDuration: tokenDuration}
}

// Issue creates a signed JWT for the given principal.
// The account service is the normal issuer in production; this is kept
// on the Verifier for CLI tooling and tests.
func (v *Verifier) Issue(p models.Principal) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: p.Username,
		Email:    p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(v.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "contextchat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses and validates the signature and expiration of a bearer
// token and returns the authenticated principal. An empty token maps to
// ErrMissingToken, every other failure to ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (models.Principal, error) {
	if tokenString == "" {
		return models.Principal{}, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return models.Principal{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Principal{}, ErrInvalidToken
	}

	return models.Principal{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// Reason maps a resolution failure to its machine-readable handshake
// rejection reason.
func Reason(err error) string {
	if errors.Is(err, ErrMissingToken) {
		return ReasonMissingToken
	}
	return ReasonInvalidToken
}
