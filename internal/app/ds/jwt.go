package ds

import (
	"licensecloud/internal/app/role"

	"github.com/golang-jwt/jwt"
)

type JWTClaims struct {
	jwt.StandardClaims
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	Role     role.Role `json:"role"`
	OrgID    *uint     `json:"org_id"`
}
