package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// sessionCookie names the cookie identifying one browser session.
const sessionCookie = "si_session"

type sessionKeyType struct{}

var sessionKey sessionKeyType

// SessionCtx assigns each request a session id from the cookie, minting
// a new one when absent. Handlers read it with sessionID.
func SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			id = c.Value
		} else {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), sessionKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	if id, ok := r.Context().Value(sessionKey).(string); ok {
		return id
	}
	return ""
}
