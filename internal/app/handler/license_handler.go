package handler

import (
	"errors"
	"net/http"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/repository"

	"github.com/gin-gonic/gin"
)

func toLicenseResponse(l *ds.License) dto.LicenseResponse {
	return dto.LicenseResponse{
		ID:          l.ID,
		LicenseKey:  l.LicenseKey,
		OrgID:       l.OrgID,
		LicenseType: l.LicenseType,
		MachineID:   l.MachineID,
		IsActive:    l.IsActive,
		ActivatedAt: l.ActivatedAt,
		ExpiresAt:   l.ExpiresAt,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ============ ДОМЕН ЛИЦЕНЗИИ (админка) ============

// GetLicenses список лицензий
// @Summary Список лицензий
// @Description Постраничный список лицензий с фильтром по организации
// @Tags Licenses
// @Produce json
// @Security BearerAuth
// @Param org_id query int false "ID организации"
// @Param page query int false "Страница" default(1)
// @Param page_size query int false "Размер страницы" default(10)
// @Success 200 {object} dto.PagedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/cloud/licenses [get]
func (h *APIHandler) GetLicenses(c *gin.Context) {
	var q dto.LicenseListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	items, total, err := h.Licenses.List(c.Request.Context(), license.ListFilter{
		OrgID:  q.OrgID,
		Limit:  q.PageSize,
		Offset: toPage(q.PageQuery).Offset(),
	})
	if err != nil {
		h.internalError(c, err, "Ошибка получения лицензий")
		return
	}

	resp := make([]dto.LicenseResponse, len(items))
	for i := range items {
		resp[i] = toLicenseResponse(&items[i])
	}
	c.JSON(http.StatusOK, paged(resp, total, q.PageQuery))
}

// GetLicense одна лицензия
// @Summary Лицензия по ID
// @Tags Licenses
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID лицензии"
// @Success 200 {object} dto.LicenseResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/licenses/{id} [get]
func (h *APIHandler) GetLicense(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID лицензии")
		return
	}

	l, err := h.Licenses.Get(c.Request.Context(), id)
	if err != nil {
		h.licenseError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLicenseResponse(l))
}

// GenerateLicense выпуск лицензии
// @Summary Выпуск лицензии
// @Description Создаёт непривязанную лицензию для организации
// @Tags Licenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LicenseCreateRequest true "Организация и класс лицензии"
// @Success 201 {object} dto.LicenseResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/licenses/generate [post]
func (h *APIHandler) GenerateLicense(c *gin.Context) {
	var req dto.LicenseCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	_, err := h.Repository.GetOrganizationByID(c.Request.Context(), req.OrgID)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Организация не найдена")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения организации")
		return
	}

	l, err := h.Licenses.Create(c.Request.Context(), req.OrgID, license.Type(req.LicenseType))
	if err != nil {
		h.licenseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLicenseResponse(l))
}

// RevokeLicense отзыв лицензии
// @Summary Отзыв лицензии
// @Description Отзыв необратим. Выданные токены перестают проходить проверку
// @Tags Licenses
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID лицензии"
// @Success 200 {object} dto.LicenseResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/licenses/{id}/revoke [put]
func (h *APIHandler) RevokeLicense(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID лицензии")
		return
	}

	l, err := h.Licenses.Revoke(c.Request.Context(), id)
	if err != nil {
		h.licenseError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLicenseResponse(l))
}

// ============ ДОМЕН ЛИЦЕНЗИИ (клиент) ============

// ActivateLicense активация на машине
// @Summary Активация лицензии
// @Description Привязывает лицензию к машине и возвращает токен активации
// @Tags Licenses
// @Accept json
// @Produce json
// @Param request body dto.ActivateRequest true "Ключ и идентификатор машины"
// @Success 200 {object} dto.ActivateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/cloud/licenses/activate [post]
func (h *APIHandler) ActivateLicense(c *gin.Context) {
	var req dto.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.Licenses.Activate(c.Request.Context(), req.LicenseKey, req.MachineID)
	if err != nil {
		h.licenseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ActivateResponse{
		ActivationToken: res.ActivationToken,
		ExpiresAt:       res.ExpiresAt,
		LicenseType:     string(res.LicenseType),
	})
}

// VerifyLicense проверка токена активации
// @Summary Проверка токена активации
// @Description Неактивный токен возвращается с is_active=false и тегом ошибки, статус 200
// @Tags Licenses
// @Accept json
// @Produce json
// @Param request body dto.VerifyRequest true "Токен активации"
// @Success 200 {object} dto.VerifyResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/cloud/licenses/verify [post]
func (h *APIHandler) VerifyLicense(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.Licenses.Verify(c.Request.Context(), req.ActivationToken)
	if err != nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Проверка лицензии временно недоступна")
		return
	}

	c.JSON(http.StatusOK, toVerifyResponse(res))
}

func toVerifyResponse(res *license.VerificationResult) dto.VerifyResponse {
	if !res.IsActive {
		code := string(res.Error)
		return dto.VerifyResponse{IsActive: false, Error: &code}
	}

	licenseType := string(res.LicenseType)
	machineID := res.MachineID
	return dto.VerifyResponse{
		IsActive:    true,
		LicenseType: &licenseType,
		ExpiresAt:   res.ExpiresAt,
		MachineID:   &machineID,
	}
}
