package handler

import (
	"errors"
	"net/http"
	"time"

	"licensecloud/internal/app/auth"
	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/middleware"
	"licensecloud/internal/app/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func toUserResponse(u *ds.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		RealName:  u.RealName,
		OrgID:     u.OrgID,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *APIHandler) authError(c *gin.Context, err error) {
	var ae *auth.Error
	if errors.As(err, &ae) {
		h.errorResponse(c, http.StatusUnauthorized, ae.Code, ae.Message)
		return
	}
	h.internalError(c, err, "Ошибка аутентификации")
}

// Login аутентификация пользователя
// @Summary Вход в систему
// @Description Проверяет логин и пароль, возвращает access и refresh токены
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Логин и пароль"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/cloud/auth/login [post]
func (h *APIHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	session, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.authError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(session.ExpiresIn.Seconds()),
		User:         toUserResponse(session.User),
	})
}

// Refresh обновление access-токена
// @Summary Обновление токена
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Refresh-токен"
// @Success 200 {object} dto.RefreshResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/cloud/auth/refresh [post]
func (h *APIHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	access, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.authError(c, err)
		return
	}

	claims, err := h.Auth.ParseAccessToken(access)
	if err != nil {
		h.internalError(c, err, "Ошибка выпуска токена")
		return
	}

	c.JSON(http.StatusOK, dto.RefreshResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int(claims.ExpiresAt - claims.IssuedAt),
	})
}

// Logout выход из системы
// @Summary Выход из системы
// @Description Удаляет refresh-токен и заносит access-токен в blacklist до истечения срока
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LogoutRequest false "Refresh-токен"
// @Success 200 {object} dto.SuccessResponse
// @Router /api/cloud/auth/logout [post]
func (h *APIHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	// тело необязательно
	_ = c.ShouldBindJSON(&req)

	if err := h.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.internalError(c, err, "Ошибка выхода")
		return
	}

	claims, ok := middleware.CurrentUser(c)
	if ok && h.Revoker != nil {
		ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
		if ttl > 0 {
			err := h.Revoker.WriteJWTToBlacklist(c.Request.Context(), middleware.BearerToken(c), ttl)
			if err != nil {
				logrus.WithError(err).Error("failed to blacklist access token")
				h.errorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Не удалось отозвать токен")
				return
			}
		}
	}

	h.successResponse(c, http.StatusOK, "Выход выполнен", nil)
}

// Profile текущий пользователь
// @Summary Профиль пользователя
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/cloud/auth/profile [get]
func (h *APIHandler) Profile(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	user, err := h.Auth.Profile(c.Request.Context(), claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Пользователь не найден")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения профиля")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}
