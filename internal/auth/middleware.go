package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/notification-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Email  string
	Tenant string
	Role   Role
}

// Middleware validates bearer tokens and loads the principal.
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
	if claims.Email == "" {
		return apperrors.NewUnauthorized("token missing email claim")
	}

	c.Locals(principalKey, &Principal{
		Email:  claims.Email,
		Tenant: claims.Tenant,
		Role:   claims.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// PrincipalFromLocals retrieves the caller from a raw locals value; websocket
// handlers only see connection locals, not the fiber context.
func PrincipalFromLocals(val interface{}) (*Principal, bool) {
	principal, ok := val.(*Principal)
	return principal, ok
}

// LocalsKey returns the locals key principals are stored under.
func LocalsKey() string {
	return principalKey
}
