package handler

import (
	"errors"
	"net/http"
	"strings"

	"licensecloud/internal/app/auth"
	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/middleware"
	"licensecloud/internal/app/repository"
	"licensecloud/internal/app/role"

	"github.com/gin-gonic/gin"
)

// GetUsers список пользователей
// @Summary Список пользователей
// @Description org_admin видит только пользователей своей организации
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Страница" default(1)
// @Param page_size query int false "Размер страницы" default(10)
// @Success 200 {object} dto.PagedResponse
// @Router /api/cloud/users [get]
func (h *APIHandler) GetUsers(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	users, total, err := h.Repository.ListUsers(c.Request.Context(), middleware.OrgScope(claims), toPage(q))
	if err != nil {
		h.internalError(c, err, "Ошибка получения пользователей")
		return
	}

	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = toUserResponse(&users[i])
	}
	c.JSON(http.StatusOK, paged(resp, total, q))
}

// CreateUser создание пользователя
// @Summary Создание пользователя
// @Description org_admin создаёт преподавателей и студентов только в своей организации
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "Данные пользователя"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/cloud/users [post]
func (h *APIHandler) CreateUser(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	newRole := role.Role(req.Role)
	orgID := req.OrgID
	if claims.Role != role.SuperAdmin {
		if newRole != role.Teacher && newRole != role.Student {
			h.errorResponse(c, http.StatusForbidden, "FORBIDDEN", "Недостаточно прав для этой роли")
			return
		}
		orgID = middleware.OrgScope(claims)
	}
	if newRole != role.SuperAdmin && orgID == nil {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Не указана организация")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, auth.ErrWeakPassword.Code, err.Error())
		return
	}

	user := ds.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Role:         newRole.String(),
		RealName:     req.RealName,
		OrgID:        orgID,
		IsActive:     true,
	}
	err = h.Repository.CreateUser(c.Request.Context(), &user)
	if errors.Is(err, repository.ErrDuplicate) {
		h.errorResponse(c, http.StatusConflict, "CONFLICT", "Пользователь с таким логином уже существует")
		return
	}
	if errors.Is(err, repository.ErrInUse) {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Организация не найдена")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка создания пользователя")
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(&user))
}

// ResetPassword сброс пароля
// @Summary Сброс пароля пользователя
// @Description Все refresh-токены пользователя отзываются
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body dto.ResetPasswordRequest true "Новый пароль"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/users/{id}/password [put]
func (h *APIHandler) ResetPassword(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID пользователя")
		return
	}

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.Repository.GetUserByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Пользователь не найден")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения пользователя")
		return
	}
	// чужая организация для org_admin выглядит как несуществующий пользователь
	if !inScope(middleware.OrgScope(claims), user.OrgID) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Пользователь не найден")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, auth.ErrWeakPassword.Code, err.Error())
		return
	}
	if err := h.Repository.ResetPassword(c.Request.Context(), id, hash); err != nil {
		h.internalError(c, err, "Ошибка смены пароля")
		return
	}
	h.successResponse(c, http.StatusOK, "Пароль изменён", nil)
}

// UpdateUser изменение пользователя
// @Summary Изменение пользователя
// @Description Меняются имя, роль и активность. Деактивация отзывает refresh-токены
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body dto.UserUpdateRequest true "Поля пользователя"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/users/{id} [put]
func (h *APIHandler) UpdateUser(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID пользователя")
		return
	}

	var req dto.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.Repository.GetUserByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Пользователь не найден")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения пользователя")
		return
	}
	if !inScope(middleware.OrgScope(claims), user.OrgID) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Пользователь не найден")
		return
	}

	if claims.Role != role.SuperAdmin {
		current := role.Role(user.Role)
		if current != role.Teacher && current != role.Student {
			h.errorResponse(c, http.StatusForbidden, "FORBIDDEN", "Недостаточно прав для изменения пользователя")
			return
		}
		if req.Role != nil && role.Role(*req.Role) != role.Teacher && role.Role(*req.Role) != role.Student {
			h.errorResponse(c, http.StatusForbidden, "FORBIDDEN", "Недостаточно прав для этой роли")
			return
		}
	}
	if req.IsActive != nil && !*req.IsActive && id == claims.UserID {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Нельзя деактивировать себя")
		return
	}

	fields := map[string]interface{}{}
	if req.RealName != nil {
		fields["real_name"] = *req.RealName
	}
	if req.Role != nil {
		fields["role"] = *req.Role
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	updated, err := h.Repository.UpdateUser(c.Request.Context(), id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Пользователь не найден")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка изменения пользователя")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(updated))
}
