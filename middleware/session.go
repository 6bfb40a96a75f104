package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/gympoints/session"
)

// ContextSessionKey stores the request's session.Anchor in Gin context.
const ContextSessionKey = "session_anchor"

// Session resolves the browser's session cookie to a slot of store, issuing
// a fresh random id when the cookie is missing or malformed.
func Session(store session.Store, cookieName string, ttl time.Duration) gin.HandlerFunc {
	maxAge := int(ttl / time.Second)
	return func(ctx *gin.Context) {
		key, err := ctx.Cookie(cookieName)
		if err != nil || !validSessionID(key) {
			key = uuid.NewString()
		}
		// refresh on every request so active sessions slide forward
		ctx.SetSameSite(http.SameSiteLaxMode)
		ctx.SetCookie(cookieName, key, maxAge, "/", "", ctx.Request.TLS != nil, true)

		ctx.Set(ContextSessionKey, store.Slot(key))
		ctx.Next()
	}
}

func validSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

// SessionAnchor returns the anchor installed by Session, or nil.
func SessionAnchor(ctx *gin.Context) session.Anchor {
	v, ok := ctx.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	a, _ := v.(session.Anchor)
	return a
}
