package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/desp-aas/project-management/internal/services"
	"github.com/golang-jwt/jwt/v5"
)

type actorKeyType string

const ActorKey actorKeyType = "actor"

// Auth validates a Bearer JWT with the provided HMAC secret and puts the acting user in context.
// The actor comes from the sub, preferred_username and email claims.
func Auth(hmacSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				unauthorized(w)
				return
			}
			tokenStr := strings.TrimSpace(ah[len("Bearer "):])
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				return hmacSecret, nil
			}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				unauthorized(w)
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				unauthorized(w)
				return
			}
			actor := services.Actor{
				OwnerID:  stringClaim(claims, "sub"),
				Username: stringClaim(claims, "preferred_username"),
				Email:    stringClaim(claims, "email"),
			}
			if actor.OwnerID == "" {
				unauthorized(w)
				return
			}
			if actor.Username == "" {
				actor.Username = actor.OwnerID
			}
			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"unauthorized","message":"missing or invalid token"}}`))
}

// GetActor returns the authenticated user from context.
func GetActor(ctx context.Context) (services.Actor, bool) {
	a, ok := ctx.Value(ActorKey).(services.Actor)
	return a, ok
}

// WithActor stores actor in ctx the way Auth does.
func WithActor(ctx context.Context, actor services.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}
