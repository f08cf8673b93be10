package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recur-sync/internal/sysutil"
)

// HeaderClientID lets a local caller identify itself. Absent, the daemon's
// configured CLIENT_ID is used.
const HeaderClientID = "X-Client-ID"

const ctxKeyClientID = "clientID"

// maxClientIDLen bounds the header to keep log fields and keys small.
const maxClientIDLen = 128

// ClientIdentity resolves the caller identity for idempotency scoping, rate
// limiting and logs.
func ClientIdentity(defaultID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(sysutil.FirstNonEmpty(c.GetHeader(HeaderClientID), defaultID))
		if len(id) > maxClientIDLen {
			id = id[:maxClientIDLen]
		}
		c.Set(ctxKeyClientID, id)
		c.Next()
	}
}

// ClientID returns the identity set by ClientIdentity, or "" when absent.
func ClientID(c *gin.Context) string {
	return c.GetString(ctxKeyClientID)
}
