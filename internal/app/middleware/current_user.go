package middleware

import (
	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/role"

	"github.com/gin-gonic/gin"
)

// Ключи контекста gin
const (
	ctxClaims     = "claims"
	ctxUserID     = "userID"
	ctxUserRole   = "userRole"
	ctxActivation = "activation"
)

func setClaims(c *gin.Context, claims *ds.JWTClaims) {
	c.Set(ctxClaims, claims)
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUserRole, claims.Role)
}

// CurrentUser claims пользователя, прошедшего WithAuthCheck.
func CurrentUser(c *gin.Context) (*ds.JWTClaims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*ds.JWTClaims)
	return claims, ok
}

// OrgScope организация, которой ограничены данные пользователя.
// Для super_admin возвращает nil: он видит все организации.
func OrgScope(claims *ds.JWTClaims) *uint {
	if claims.Role == role.SuperAdmin {
		return nil
	}
	if claims.OrgID == nil {
		// пользователь без организации не видит ничего
		none := uint(0)
		return &none
	}
	return claims.OrgID
}

// Activation claims токена активации, прошедшего RequireActivation.
func Activation(c *gin.Context) (*license.Claims, bool) {
	v, exists := c.Get(ctxActivation)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*license.Claims)
	return claims, ok
}
