package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	orgIDKey  contextKey = "org_id"
	loginKey  contextKey = "login"

	authCookieName = "auth_token"
	tokenTTL       = 24 * time.Hour
)

// authClaims — полезная нагрузка JWT. Организация нужна каждому хендлеру:
// по ней фильтруются все выборки (аналог row-level security).
type authClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	OrgID  string `json:"org"`
	Login  string `json:"login"`
}

// SetLoginCookie подписывает JWT и ставит его в auth cookie ответа.
func SetLoginCookie(w http.ResponseWriter, userID int64, orgID, login, secret string) error {
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
		OrgID:  orgID,
		Login:  login,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// WithAuth разбирает auth cookie и кладёт user_id/org_id/login в контекст.
// Отсутствие или невалидность cookie не прерывает запрос: решение об отказе
// принимает хендлер, которому нужна аутентификация.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(authCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims := &authClaims{}
			token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, orgIDKey, claims.OrgID)
			ctx = context.WithValue(ctx, loginKey, claims.Login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext возвращает user_id текущего запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(userIDKey).(int64)
	return v, ok
}

// GetOrgIDFromContext возвращает org_id текущего запроса.
func GetOrgIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(orgIDKey).(string)
	return v, ok && v != ""
}

// GetLoginFromContext возвращает логин текущего пользователя.
func GetLoginFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(loginKey).(string)
	return v, ok && v != ""
}
