package middleware

import (
	"context"
	"errors"
	"net/http"

	"orderkeeper-be/internal/auth"
	"orderkeeper-be/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey      contextKey = "userID"
	TokenClaimsKey contextKey = "jwtClaims"

	RoleAdmin = "ADMIN"
)

var errMissingToken = errors.New("missing bearer token")

// RequireAdmin rejects requests without a valid HS256 token carrying
// role=ADMIN. 401 for a missing or invalid token, 403 for any other role.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromCtx(r.Context()).With(zap.String("layer", "auth"))

			claims, err := parseClaims(r, key)
			if err != nil {
				log.Warn("rejected unauthenticated request", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			if role, _ := claims["role"].(string); role != RoleAdmin {
				log.Warn("rejected non-admin request", zap.Any("role", claims["role"]))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), TokenClaimsKey, claims)
			if uid, ok := claims["user_id"].(float64); ok {
				ctx = context.WithValue(ctx, UserIDKey, int64(uid))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseClaims(r *http.Request, key []byte) (jwt.MapClaims, error) {
	tokenStr := auth.ExtractAccessToken(r, auth.AdminCookie)
	if tokenStr == "" {
		return nil, errMissingToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(UserIDKey).(int64)
	return uid, ok
}
