package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-Token"
	SessionCookie = "session_token"

	sessionKey = "session_token"
)

// SessionToken resolves the anonymous session of the caller from the
// X-Session-Token header or the session cookie, issuing a new one when
// neither holds a valid token. Handlers read it with sessionToken.
func SessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionHeader)
		if token == "" {
			token, _ = c.Cookie(SessionCookie)
		}
		if _, err := uuid.Parse(token); err != nil {
			token = uuid.NewString()
			c.SetCookie(SessionCookie, token, 0, "/", "", false, true)
		}
		c.Header(SessionHeader, token)
		c.Set(sessionKey, token)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	return c.GetString(sessionKey)
}
