package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/repository"
	"licensecloud/internal/app/storage"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"
)

// maxPackageSize ограничение на размер пакета обновления
const maxPackageSize = 1 << 30

func toUpdateResponse(u *ds.SoftwareUpdate) dto.UpdateResponse {
	return dto.UpdateResponse{
		ID:           u.ID,
		Version:      u.Version,
		ReleaseDate:  u.ReleaseDate.Format(dateLayout),
		ReleaseNotes: u.ReleaseNotes,
		FileSize:     u.FileSize,
		HasPackage:   u.PackageName != nil,
		IsMandatory:  u.IsMandatory,
		CreatedAt:    u.CreatedAt,
	}
}

// latestUpdate самая новая версия по semver. Записи с неразбираемой версией пропускаются.
func latestUpdate(updates []ds.SoftwareUpdate) (*ds.SoftwareUpdate, *version.Version) {
	var latest *ds.SoftwareUpdate
	var latestVer *version.Version
	for i := range updates {
		v, err := version.NewVersion(updates[i].Version)
		if err != nil {
			logrus.WithField("version", updates[i].Version).Warn("skipping update with invalid version")
			continue
		}
		if latestVer == nil || v.GreaterThan(latestVer) {
			latest, latestVer = &updates[i], v
		}
	}
	return latest, latestVer
}

// GetUpdates список версий
// @Summary Список версий клиента
// @Tags Updates
// @Produce json
// @Security BearerAuth
// @Param page query int false "Страница" default(1)
// @Param page_size query int false "Размер страницы" default(10)
// @Success 200 {object} dto.PagedResponse
// @Router /api/cloud/updates [get]
func (h *APIHandler) GetUpdates(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	updates, total, err := h.Repository.ListUpdates(c.Request.Context(), toPage(q))
	if err != nil {
		h.internalError(c, err, "Ошибка получения версий")
		return
	}

	resp := make([]dto.UpdateResponse, len(updates))
	for i := range updates {
		resp[i] = toUpdateResponse(&updates[i])
	}
	c.JSON(http.StatusOK, paged(resp, total, q))
}

// CreateUpdate регистрация версии
// @Summary Регистрация новой версии
// @Tags Updates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateCreateRequest true "Описание версии"
// @Success 201 {object} dto.UpdateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/cloud/updates [post]
func (h *APIHandler) CreateUpdate(c *gin.Context) {
	var req dto.UpdateCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	releaseDate, _ := time.Parse(dateLayout, req.ReleaseDate)
	upd := ds.SoftwareUpdate{
		Version:      req.Version,
		ReleaseDate:  releaseDate,
		ReleaseNotes: req.ReleaseNotes,
		IsMandatory:  req.IsMandatory,
	}

	err := h.Repository.CreateUpdate(c.Request.Context(), &upd)
	if errors.Is(err, repository.ErrDuplicate) {
		h.errorResponse(c, http.StatusConflict, "CONFLICT", "Такая версия уже зарегистрирована")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка создания версии")
		return
	}
	c.JSON(http.StatusCreated, toUpdateResponse(&upd))
}

// UploadUpdatePackage загрузка пакета версии
// @Summary Загрузка пакета обновления
// @Description Файл сохраняется в MinIO, предыдущий пакет версии удаляется
// @Tags Updates
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID версии"
// @Param file formData file true "Пакет"
// @Success 200 {object} dto.UpdateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/updates/{id}/package [post]
func (h *APIHandler) UploadUpdatePackage(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID версии")
		return
	}

	if h.Storage == nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Хранилище пакетов не настроено")
		return
	}

	upd, err := h.Repository.GetUpdateByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Версия не найдена")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения версии")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Файл не передан")
		return
	}
	if file.Size <= 0 || file.Size > maxPackageSize {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Недопустимый размер файла")
		return
	}

	src, err := file.Open()
	if err != nil {
		h.internalError(c, err, "Ошибка чтения файла")
		return
	}
	defer src.Close()

	objectName := storage.ObjectName(upd.Version, file.Filename)
	if err := h.Storage.UploadFile(ctx, objectName, src, file.Size); err != nil {
		h.internalError(c, err, "Ошибка загрузки пакета")
		return
	}

	if err := h.Repository.SetUpdatePackage(ctx, id, objectName, file.Size); err != nil {
		h.removeObject(ctx, objectName)
		h.internalError(c, err, "Ошибка сохранения пакета")
		return
	}
	if upd.PackageName != nil {
		h.removeObject(ctx, *upd.PackageName)
	}

	upd.PackageName = &objectName
	upd.FileSize = &file.Size
	c.JSON(http.StatusOK, toUpdateResponse(upd))
}

func (h *APIHandler) removeObject(ctx context.Context, objectName string) {
	if err := h.Storage.DeleteFile(ctx, objectName); err != nil {
		logrus.WithError(err).WithField("object", objectName).Warn("failed to delete object")
	}
}

// CheckUpdate проверка обновлений клиентом
// @Summary Проверка наличия обновления
// @Description Сравнение по semver. Для более новой версии отдаётся временная ссылка на пакет
// @Tags Updates
// @Produce json
// @Param version query string true "Текущая версия клиента"
// @Success 200 {object} dto.UpdateCheckResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/cloud/updates/check [get]
func (h *APIHandler) CheckUpdate(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.UpdateCheckQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}
	current, _ := version.NewVersion(q.Version)

	updates, err := h.Repository.AllUpdates(ctx)
	if err != nil {
		h.internalError(c, err, "Ошибка получения версий")
		return
	}

	latest, latestVer := latestUpdate(updates)
	if latest == nil || !latestVer.GreaterThan(current) {
		c.JSON(http.StatusOK, dto.UpdateCheckResponse{UpToDate: true})
		return
	}

	resp := toUpdateResponse(latest)
	if latest.PackageName != nil && h.Storage != nil {
		resp.DownloadURL = h.downloadURL(ctx, *latest.PackageName)
	}
	c.JSON(http.StatusOK, dto.UpdateCheckResponse{UpToDate: false, Latest: &resp})
}

// downloadURL пустая строка, если объекта нет или MinIO недоступен
func (h *APIHandler) downloadURL(ctx context.Context, objectName string) string {
	exists, err := h.Storage.FileExists(ctx, objectName)
	if err != nil || !exists {
		logrus.WithError(err).WithField("object", objectName).Warn("update package unavailable")
		return ""
	}
	url, err := h.Storage.GetFileURL(ctx, objectName)
	if err != nil {
		logrus.WithError(err).WithField("object", objectName).Warn("failed to presign package url")
		return ""
	}
	return url
}
