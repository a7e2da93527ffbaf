package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rohits-web03/sharegate/internal/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// SessionCookie is the cookie carrying the owner's session JWT.
const SessionCookie = "token"

// SessionClaims are the claims of an owner session token.
type SessionClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Auth rejects requests without a valid session cookie and stores the
// owner's id in the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := parseSession(cookie.Value, secret)
			if err != nil {
				utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseSession(tokenStr, secret string) (uuid.UUID, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}
	if claims.UserID == "" {
		return uuid.Nil, errors.New("session without user id")
	}
	return uuid.Parse(claims.UserID)
}

// UserID returns the authenticated owner stored by Auth.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// WithUserID returns ctx carrying id as the authenticated owner.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}
