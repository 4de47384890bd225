package middleware

import (
	"strings"

	"collections-console/internal/core/domain"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the console session cookie
const SessionCookie = "console_session"

const sessionLocal = "session"

// SessionResolver turns a console token into a session
type SessionResolver interface {
	Resolve(token string) (*domain.Session, error)
}

// AuthMiddleware requires a live console session
func AuthMiddleware(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c)

		// No token found
		if token == "" {
			return response.SessionExpired(c, "Please sign in")
		}

		// Resolve the session
		sess, err := sessions.Resolve(token)
		if err != nil {
			return response.SessionExpired(c, "Your session has ended, please sign in again")
		}

		// Set session in context
		c.Locals(sessionLocal, sess)
		c.Locals("userID", sess.UserID)
		c.Locals("role", string(sess.Role))

		return c.Next()
	}
}

// OptionalAuth sets the session when one is present but never rejects
func OptionalAuth(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := tokenFrom(c); token != "" {
			if sess, err := sessions.Resolve(token); err == nil {
				c.Locals(sessionLocal, sess)
			}
		}
		return c.Next()
	}
}

// tokenFrom reads the console token from the cookie, then the Authorization header
func tokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// SessionFrom returns the session set by AuthMiddleware
func SessionFrom(c *fiber.Ctx) *domain.Session {
	sess, _ := c.Locals(sessionLocal).(*domain.Session)
	return sess
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil {
			return response.SessionExpired(c, "Please sign in")
		}

		// Check if user's role is in allowed roles
		for _, allowedRole := range allowedRoles {
			if sess.Role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// SupervisorOrAdmin allows SUPERVISOR or ADMIN roles
func SupervisorOrAdmin() fiber.Handler {
	return RoleMiddleware(domain.RoleSupervisor, domain.RoleAdmin)
}
