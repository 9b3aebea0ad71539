package middleware

import (
	"context"
	"net/http"
	"strings"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/role"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenParser проверяет access-токен и возвращает claims.
type TokenParser interface {
	ParseAccessToken(token string) (*ds.JWTClaims, error)
}

// TokenBlacklist отозванные при выходе access-токены.
type TokenBlacklist interface {
	IsJWTBlacklisted(ctx context.Context, jwtStr string) (bool, error)
}

type AuthMiddleware struct {
	Tokens    TokenParser
	Blacklist TokenBlacklist
}

func NewAuthMiddleware(tokens TokenParser, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{
		Tokens:    tokens,
		Blacklist: blacklist,
	}
}

// BearerToken достаёт токен из заголовка Authorization.
func BearerToken(gCtx *gin.Context) string {
	jwtStr := gCtx.GetHeader("Authorization")
	if strings.HasPrefix(jwtStr, "Bearer ") {
		jwtStr = jwtStr[len("Bearer "):]
	}
	return strings.TrimSpace(jwtStr)
}

// WithAuthCheck middleware для проверки авторизации с ролями
func (am *AuthMiddleware) WithAuthCheck(assignedRoles ...role.Role) gin.HandlerFunc {
	return gin.HandlerFunc(func(gCtx *gin.Context) {
		jwtStr := BearerToken(gCtx)
		if jwtStr == "" {
			abort(gCtx, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header missing")
			return
		}

		// Проверяем токен в blacklist Redis
		if am.Blacklist != nil {
			blacklisted, err := am.Blacklist.IsJWTBlacklisted(gCtx.Request.Context(), jwtStr)
			if err != nil {
				logrus.WithError(err).Error("blacklist check failed")
				abort(gCtx, http.StatusServiceUnavailable, "UNAVAILABLE", "token check unavailable")
				return
			}
			if blacklisted {
				abort(gCtx, http.StatusUnauthorized, "UNAUTHORIZED", "token has been revoked")
				return
			}
		}

		claims, err := am.Tokens.ParseAccessToken(jwtStr)
		if err != nil {
			abort(gCtx, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}

		// Проверяем роли пользователя
		if len(assignedRoles) > 0 && !hasRequiredRole(claims.Role, assignedRoles) {
			abort(gCtx, http.StatusForbidden, "FORBIDDEN", "insufficient role")
			return
		}

		setClaims(gCtx, claims)

		gCtx.Next()
	})
}

// hasRequiredRole проверяет, есть ли у пользователя необходимая роль
func hasRequiredRole(userRole role.Role, requiredRoles []role.Role) bool {
	for _, requiredRole := range requiredRoles {
		if userRole == requiredRole {
			return true
		}
	}
	return false
}

func abort(gCtx *gin.Context, status int, code, message string) {
	gCtx.AbortWithStatusJSON(status, dto.ErrorResponse{
		Status:  "fail",
		Code:    code,
		Message: message,
	})
}
