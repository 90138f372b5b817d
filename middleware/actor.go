package middleware

import (
	"net/http"
	"strings"

	"telecare/utils"

	"github.com/gin-gonic/gin"
)

// ActorHeader carries the id of the acting patient or professional. Identity
// is asserted by the gateway in front of this service.
const ActorHeader = "X-User-ID"

// ActorKey is the gin context key holding the acting user id.
const ActorKey = "userID"

// RequireActor rejects requests without an acting user.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", ActorHeader+" header is required")
			return
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// Actor returns the id stored by RequireActor.
func Actor(c *gin.Context) string {
	return c.GetString(ActorKey)
}
