package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "blackjack-service/pkg/auth"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextTokenHashKey = "tokenHash"
	ContextAccountIDKey = "accountID"

	HeaderPlayerToken = "X-Player-Token"
	HeaderUserID      = "X-User-Id"
	CookiePlayerToken = "playerToken"

	// session subjects hash in their own namespace, apart from raw tokens
	sessionTokenPrefix = "session:"
)

// PlayerIdentity resolves the caller's seat identity from, in order, a
// bearer session token, the X-Player-Token header, the playerToken cookie or
// a token query parameter (websocket clients). Only the hash is kept.
func PlayerIdentity(hasher pkgAuth.Hasher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			token, err := extractBearerToken(authHeader)
			if err != nil {
				response.Error(c, http.StatusUnauthorized, err.Error())
				c.Abort()
				return
			}
			claims, err := pkgAuth.ParseSessionToken(token)
			if err != nil {
				response.Error(c, http.StatusUnauthorized, appErr.ErrInvalidSessionToken.Error())
				c.Abort()
				return
			}
			c.Set(ContextTokenHashKey, hasher.Hash(sessionTokenPrefix+claims.PlayerID))
		} else if token := rawPlayerToken(c); token != "" {
			c.Set(ContextTokenHashKey, hasher.Hash(token))
		}

		if accountID := strings.TrimSpace(c.GetHeader(HeaderUserID)); accountID != "" {
			c.Set(ContextAccountIDKey, accountID)
		}
		c.Next()
	}
}

// PlayerRequired rejects requests without a resolved identity.
func PlayerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if TokenHash(c) == "" {
			response.FromError(c, appErr.ErrTokenRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AccountRequired rejects requests without an X-User-Id.
func AccountRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if AccountID(c) == "" {
			response.FromError(c, appErr.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

func TokenHash(c *gin.Context) string {
	return c.GetString(ContextTokenHashKey)
}

func AccountID(c *gin.Context) string {
	return c.GetString(ContextAccountIDKey)
}

func rawPlayerToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(HeaderPlayerToken)); token != "" {
		return token
	}
	if token, err := c.Cookie(CookiePlayerToken); err == nil && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(c.Query("token"))
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
