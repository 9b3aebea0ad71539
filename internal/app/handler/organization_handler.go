package handler

import (
	"errors"
	"net/http"
	"strings"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/repository"

	"github.com/gin-gonic/gin"
)

type orgListQuery struct {
	dto.PageQuery
	Search string `form:"search" binding:"max=100"`
}

func toOrgResponse(o *ds.Organization) dto.OrgResponse {
	return dto.OrgResponse{
		ID:           o.ID,
		Name:         o.Name,
		ContactName:  o.ContactName,
		ContactPhone: o.ContactPhone,
		Address:      o.Address,
		LicenseQuota: o.LicenseQuota,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// GetOrganizations список организаций
// @Summary Список организаций
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param search query string false "Поиск по названию"
// @Param page query int false "Страница" default(1)
// @Param page_size query int false "Размер страницы" default(10)
// @Success 200 {object} dto.PagedResponse
// @Router /api/cloud/orgs [get]
func (h *APIHandler) GetOrganizations(c *gin.Context) {
	var q orgListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	orgs, total, err := h.Repository.ListOrganizations(c.Request.Context(), strings.TrimSpace(q.Search), toPage(q.PageQuery))
	if err != nil {
		h.internalError(c, err, "Ошибка получения организаций")
		return
	}

	resp := make([]dto.OrgResponse, len(orgs))
	for i := range orgs {
		resp[i] = toOrgResponse(&orgs[i])
	}
	c.JSON(http.StatusOK, paged(resp, total, q.PageQuery))
}

// GetOrganization карточка организации
// @Summary Организация по ID
// @Description Вместе с числом лицензий и пользователей
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID организации"
// @Success 200 {object} dto.OrgDetailResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/orgs/{id} [get]
func (h *APIHandler) GetOrganization(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID организации")
		return
	}

	org, err := h.Repository.GetOrganizationByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Организация не найдена")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения организации")
		return
	}

	stats, err := h.Repository.GetOrganizationStats(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err, "Ошибка получения статистики организации")
		return
	}

	c.JSON(http.StatusOK, dto.OrgDetailResponse{
		OrgResponse:        toOrgResponse(org),
		LicenseCount:       stats.LicenseCount,
		ActiveLicenseCount: stats.ActiveLicenseCount,
		UserCount:          stats.UserCount,
	})
}

// CreateOrganization создание организации
// @Summary Создание организации
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.OrgCreateRequest true "Данные организации"
// @Success 201 {object} dto.OrgResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/cloud/orgs [post]
func (h *APIHandler) CreateOrganization(c *gin.Context) {
	var req dto.OrgCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	org := ds.Organization{
		Name:         strings.TrimSpace(req.Name),
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		LicenseQuota: 10,
	}
	if req.LicenseQuota != nil {
		org.LicenseQuota = *req.LicenseQuota
	}

	if err := h.Repository.CreateOrganization(c.Request.Context(), &org); err != nil {
		h.internalError(c, err, "Ошибка создания организации")
		return
	}
	c.JSON(http.StatusCreated, toOrgResponse(&org))
}

// UpdateOrganization изменение организации
// @Summary Изменение организации
// @Description Меняются только переданные поля
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID организации"
// @Param request body dto.OrgUpdateRequest true "Поля для изменения"
// @Success 200 {object} dto.OrgResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/orgs/{id} [put]
func (h *APIHandler) UpdateOrganization(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID организации")
		return
	}

	var req dto.OrgUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.ContactName != nil {
		fields["contact_name"] = *req.ContactName
	}
	if req.ContactPhone != nil {
		fields["contact_phone"] = *req.ContactPhone
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.LicenseQuota != nil {
		fields["license_quota"] = *req.LicenseQuota
	}

	org, err := h.Repository.UpdateOrganization(c.Request.Context(), id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Организация не найдена")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка изменения организации")
		return
	}
	c.JSON(http.StatusOK, toOrgResponse(org))
}

// DeleteOrganization удаление организации
// @Summary Удаление организации
// @Description Запрещено, пока у организации есть активные лицензии
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID организации"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/cloud/orgs/{id} [delete]
func (h *APIHandler) DeleteOrganization(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID организации")
		return
	}

	err := h.Repository.DeleteOrganization(c.Request.Context(), id)
	switch {
	case err == nil:
		h.successResponse(c, http.StatusOK, "Организация удалена", nil)
	case errors.Is(err, repository.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Организация не найдена")
	case errors.Is(err, repository.ErrActiveLicenses):
		h.errorResponse(c, http.StatusConflict, "CONFLICT", "У организации есть активные лицензии")
	case errors.Is(err, repository.ErrInUse):
		h.errorResponse(c, http.StatusConflict, "CONFLICT", "На организацию ссылаются другие записи")
	default:
		h.internalError(c, err, "Ошибка удаления организации")
	}
}
