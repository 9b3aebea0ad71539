package handler

import (
	"net/http"
	"time"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	syncDownload = "download"
	syncUpload   = "upload"
)

// activationClaims claims клиента, прошедшего RequireActivation.
func (h *APIHandler) activationClaims(c *gin.Context) (*license.Claims, bool) {
	claims, ok := middleware.Activation(c)
	if !ok || claims == nil {
		h.errorResponse(c, http.StatusUnauthorized, string(license.CodeInvalidToken), "Нет токена активации")
		return nil, false
	}
	return claims, true
}

// recordSync пишет запись в журнал синхронизаций. Ошибка журнала не ломает ответ.
func (h *APIHandler) recordSync(c *gin.Context, claims *license.Claims, syncType, direction string, count int, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	licenseID := claims.LicenseID
	err := h.Repository.CreateSyncLog(c.Request.Context(), &ds.SyncLog{
		LicenseID:   &licenseID,
		SyncType:    syncType,
		Direction:   direction,
		RecordCount: count,
		Status:      status,
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"license_id": claims.LicenseID,
			"sync_type":  syncType,
		}).Warn("failed to write sync log")
	}
}

// SyncTasks опубликованные задания организации
// @Summary Задания для клиента
// @Description Опубликованные задания организации, изменённые после since
// @Tags Sync
// @Produce json
// @Param X-Activation-Token header string true "Токен активации"
// @Param since query string true "RFC 3339"
// @Success 200 {array} dto.TaskResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/cloud/sync/tasks [get]
func (h *APIHandler) SyncTasks(c *gin.Context) {
	claims, ok := h.activationClaims(c)
	if !ok {
		return
	}

	var q dto.SyncQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	tasks, err := h.Repository.PublishedTasksSince(c.Request.Context(), claims.OrgID, q.Since)
	if err != nil {
		h.recordSync(c, claims, "tasks", syncDownload, 0, true)
		h.internalError(c, err, "Ошибка получения заданий")
		return
	}
	h.recordSync(c, claims, "tasks", syncDownload, len(tasks), false)

	resp := make([]dto.TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = toTaskResponse(&tasks[i])
	}
	c.JSON(http.StatusOK, resp)
}

// SyncUsers пользователи организации
// @Summary Пользователи для клиента
// @Tags Sync
// @Produce json
// @Param X-Activation-Token header string true "Токен активации"
// @Param since query string true "RFC 3339"
// @Success 200 {array} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/cloud/sync/users [get]
func (h *APIHandler) SyncUsers(c *gin.Context) {
	claims, ok := h.activationClaims(c)
	if !ok {
		return
	}

	var q dto.SyncQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	users, err := h.Repository.OrgUsersSince(c.Request.Context(), claims.OrgID, q.Since)
	if err != nil {
		h.recordSync(c, claims, "users", syncDownload, 0, true)
		h.internalError(c, err, "Ошибка получения пользователей")
		return
	}
	h.recordSync(c, claims, "users", syncDownload, len(users), false)

	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = toUserResponse(&users[i])
	}
	c.JSON(http.StatusOK, resp)
}

// SyncGrades оценки студента
// @Summary Оценки студента для клиента
// @Tags Sync
// @Produce json
// @Param X-Activation-Token header string true "Токен активации"
// @Param since query string true "RFC 3339"
// @Param student_id query int true "ID студента"
// @Success 200 {array} dto.GradeResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/cloud/sync/grades [get]
func (h *APIHandler) SyncGrades(c *gin.Context) {
	claims, ok := h.activationClaims(c)
	if !ok {
		return
	}

	var q dto.GradesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	reports, err := h.Repository.GradedReportsSince(c.Request.Context(), claims.OrgID, q.StudentID, q.Since)
	if err != nil {
		h.recordSync(c, claims, "grades", syncDownload, 0, true)
		h.internalError(c, err, "Ошибка получения оценок")
		return
	}
	h.recordSync(c, claims, "grades", syncDownload, len(reports), false)

	resp := make([]dto.GradeResponse, len(reports))
	for i, r := range reports {
		resp[i] = dto.GradeResponse{
			ID:          r.ID,
			TaskID:      r.TaskID,
			StudentID:   r.StudentID,
			Score:       r.Score,
			Feedback:    r.Feedback,
			GraderID:    r.GraderID,
			Status:      r.Status,
			SubmittedAt: r.SubmittedAt,
			GradedAt:    r.GradedAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// UploadAnalytics приём статистики клиента
// @Summary Загрузка статистики использования
// @Description Лицензия и организация берутся из токена активации
// @Tags Sync
// @Accept json
// @Produce json
// @Param X-Activation-Token header string true "Токен активации"
// @Param request body dto.AnalyticsUploadRequest true "Статистика за день"
// @Success 201 {object} dto.AnalyticsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/cloud/sync/analytics [post]
func (h *APIHandler) UploadAnalytics(c *gin.Context) {
	claims, ok := h.activationClaims(c)
	if !ok {
		return
	}

	var req dto.AnalyticsUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	// формат уже проверен тегом datetime
	reportDate, _ := time.Parse(dateLayout, req.ReportDate)

	licenseID, orgID := claims.LicenseID, claims.OrgID
	rec := ds.Analytics{
		LicenseID:       &licenseID,
		OrgID:           &orgID,
		ReportDate:      reportDate,
		ActiveUserCount: req.ActiveUserCount,
		ExperimentCount: req.ExperimentCount,
		ModuleUsage:     req.ModuleUsage,
	}
	if err := h.Repository.CreateAnalytics(c.Request.Context(), &rec); err != nil {
		h.recordSync(c, claims, "analytics", syncUpload, 0, true)
		h.internalError(c, err, "Ошибка сохранения статистики")
		return
	}
	h.recordSync(c, claims, "analytics", syncUpload, 1, false)

	c.JSON(http.StatusCreated, dto.AnalyticsResponse{
		ID:              rec.ID,
		LicenseID:       rec.LicenseID,
		OrgID:           rec.OrgID,
		ReportDate:      rec.ReportDate.Format(dateLayout),
		ActiveUserCount: rec.ActiveUserCount,
		ExperimentCount: rec.ExperimentCount,
		ModuleUsage:     rec.ModuleUsage,
		CreatedAt:       rec.CreatedAt,
	})
}
