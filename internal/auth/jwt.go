package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/topcenter/portal-realtime/internal/core/domain"
)

// AppMetadata is the server-controlled metadata the BaaS embeds in its tokens.
type AppMetadata struct {
	PortalRole string `json:"portal_role,omitempty"`
}

// Claims defines the structured data read from a BaaS access token.
// The user id is the standard subject claim.
type Claims struct {
	Email       string      `json:"email,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// Role maps the portal role onto a chat sender. Anything unknown is a user.
func (c *Claims) Role() domain.Sender {
	switch role := domain.Sender(c.AppMetadata.PortalRole); role {
	case domain.SenderAgent, domain.SenderBot:
		return role
	default:
		return domain.SenderUser
	}
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	audience  string
}

// NewTokenManager validates HS256 tokens signed with secret. GenerateToken
// uses ttl; it only exists for tests and local tooling since the BaaS issues
// the real tokens.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secretKey: []byte(secret), ttl: ttl}
}

// WithAudience requires the given aud claim on every validated token.
func (tm *TokenManager) WithAudience(audience string) *TokenManager {
	tm.audience = audience
	return tm
}

// GenerateToken creates a new JWT access token
func (tm *TokenManager) GenerateToken(userID string, role domain.Sender) (string, error) {
	now := time.Now()
	claims := &Claims{
		AppMetadata: AppMetadata{PortalRole: string(role)},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			Subject:   userID,
		},
	}
	if tm.audience != "" {
		claims.Audience = jwt.ClaimStrings{tm.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if tm.audience != "" {
		opts = append(opts, jwt.WithAudience(tm.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	}, opts...)

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}
