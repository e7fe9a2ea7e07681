package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TelegramIDKey is the gin context key holding the authenticated telegram id.
const TelegramIDKey = "telegram_id"

type TokenParser interface {
	Parse(token string) (string, error)
}

type AuthMiddleware struct {
	parser   TokenParser
	required bool
}

func NewAuthMiddleware(parser TokenParser, required bool) *AuthMiddleware {
	return &AuthMiddleware{
		parser:   parser,
		required: required,
	}
}

// Handle authenticates Bearer tokens. Without a token the request passes anonymously
// unless authentication is required.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if m.required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingToken.Error()})
				return
			}
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMalformedHeader.Error()})
			return
		}

		telegramID, err := m.parser.Parse(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
			return
		}

		c.Set(TelegramIDKey, telegramID)
		c.Next()
	}
}

// Owner returns the authenticated telegram id, empty for anonymous requests.
func Owner(c *gin.Context) string {
	return c.GetString(TelegramIDKey)
}
