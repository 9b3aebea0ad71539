package middleware

import (
	"context"
	"net/http"
	"strings"

	"licensecloud/internal/app/license"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ActivationHeader заголовок с токеном активации клиента
const ActivationHeader = "X-Activation-Token"

// ActivationVerifier проверка токена активации.
type ActivationVerifier interface {
	Verify(ctx context.Context, token string) (*license.VerificationResult, error)
}

// RequireActivation пускает только клиентов с действующим токеном активации.
// Организация и лицензия дальше берутся из claims токена.
func RequireActivation(verifier ActivationVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(ActivationHeader))
		if token == "" {
			abort(c, http.StatusUnauthorized, string(license.CodeInvalidToken), "activation token missing")
			return
		}

		res, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logrus.WithError(err).Error("activation check failed")
			abort(c, http.StatusServiceUnavailable, "UNAVAILABLE", "license check unavailable")
			return
		}
		if !res.IsActive {
			abort(c, http.StatusUnauthorized, string(res.Error), "activation token is not active")
			return
		}

		c.Set(ctxActivation, res.Claims)
		c.Next()
	}
}
