package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/event-approval/internal/domain/workflow"
)

const actorContextKey = "actor"

// ErrInvalidToken is returned for any token that cannot be trusted
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims that identify an actor
type Claims struct {
	Role workflow.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenAuthority issues and verifies HS256 access tokens
type TokenAuthority struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenAuthority creates a token authority
func NewTokenAuthority(secret, issuer string, ttl time.Duration) *TokenAuthority {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenAuthority{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the actor
func (a *TokenAuthority) Issue(actor workflow.Actor) (string, error) {
	if actor.ID == "" || !actor.Role.IsValid() {
		return "", fmt.Errorf("cannot issue token for actor %q with role %q", actor.ID, actor.Role)
	}

	now := a.now()
	claims := &Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the actor it names
func (a *TokenAuthority) Parse(tokenString string) (workflow.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return workflow.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return workflow.Actor{}, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.IsValid() {
		return workflow.Actor{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}

	return workflow.NewActor(claims.Subject, claims.Role), nil
}

// authMiddleware resolves the actor from the bearer token
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "missing bearer token"})
			return
		}

		actor, err := s.auth.Parse(strings.TrimSpace(raw))
		if err != nil {
			s.logger.Info("Rejected token", "error", err, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid token"})
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// actorFrom returns the actor set by authMiddleware
func actorFrom(c *gin.Context) workflow.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(workflow.Actor); ok {
			return actor
		}
	}
	return workflow.Actor{}
}
