package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/blueriver/escalation-service/pkg/util"
)

const actorKey = "auth_actor"

// Actor represents the authenticated human caller. Manual escalations record
// it as triggered-by in the audit trail.
type Actor struct {
	ID   string
	Name string
}

// Middleware validates bearer tokens and loads the acting user.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(actorKey, &Actor{ID: claims.ActorID, Name: claims.Name})
	return c.Next()
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (*Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return nil, false
	}
	actor, ok := val.(*Actor)
	return actor, ok
}
