package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/middleware"
	"licensecloud/internal/app/repository"
	"licensecloud/internal/app/role"
	"licensecloud/internal/app/storage"

	"github.com/gin-gonic/gin"
)

const maxReportSize = 50 << 20

var reportExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".zip":  true,
}

func toTaskResponse(t *ds.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		ModuleID:    t.ModuleID,
		TeacherID:   t.TeacherID,
		OrgID:       t.OrgID,
		Deadline:    t.Deadline,
		MaxScore:    t.MaxScore,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toReportResponse(r *ds.Report) dto.ReportResponse {
	return dto.ReportResponse{
		ID:               r.ID,
		TaskID:           r.TaskID,
		StudentID:        r.StudentID,
		OriginalFilename: r.OriginalFilename,
		FileSize:         r.FileSize,
		Score:            r.Score,
		Feedback:         r.Feedback,
		GraderID:         r.GraderID,
		Status:           r.Status,
		SubmittedAt:      r.SubmittedAt,
		GradedAt:         r.GradedAt,
	}
}

// inScope запись организации orgID видна пользователю с областью scope.
func inScope(scope, orgID *uint) bool {
	return scope == nil || (orgID != nil && *orgID == *scope)
}

// loadTask задание из области пользователя. Ответ с ошибкой уже отправлен, если ok=false.
func (h *APIHandler) loadTask(c *gin.Context, claims *ds.JWTClaims, id uint) (*ds.Task, bool) {
	task, err := h.Repository.GetTaskByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Задание не найдено")
		return nil, false
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения задания")
		return nil, false
	}
	// чужое задание выглядит как несуществующее
	if !inScope(middleware.OrgScope(claims), task.OrgID) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Задание не найдено")
		return nil, false
	}
	return task, true
}

// loadReport отчёт, чьё задание входит в область пользователя.
func (h *APIHandler) loadReport(c *gin.Context, claims *ds.JWTClaims) (*ds.Report, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID отчёта")
		return nil, false
	}

	report, err := h.Repository.GetReportByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Отчёт не найден")
		return nil, false
	}
	if err != nil {
		h.internalError(c, err, "Ошибка получения отчёта")
		return nil, false
	}

	if scope := middleware.OrgScope(claims); scope != nil {
		if report.TaskID == nil {
			h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Отчёт не найден")
			return nil, false
		}
		task, err := h.Repository.GetTaskByID(c.Request.Context(), *report.TaskID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			h.internalError(c, err, "Ошибка получения задания")
			return nil, false
		}
		if task == nil || !inScope(scope, task.OrgID) {
			h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Отчёт не найден")
			return nil, false
		}
	}
	return report, true
}

// ============ Задания ============

// GetTasks список заданий
// @Summary Список заданий
// @Description org_admin и teacher видят только задания своей организации
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param org_id query int false "ID организации (только super_admin)"
// @Param status query string false "draft или published"
// @Param page query int false "Страница" default(1)
// @Param page_size query int false "Размер страницы" default(10)
// @Success 200 {object} dto.PagedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/cloud/tasks [get]
func (h *APIHandler) GetTasks(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	var q dto.TaskListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	filter := repository.TaskFilter{OrgID: q.OrgID, Status: q.Status}
	if scope := middleware.OrgScope(claims); scope != nil {
		filter.OrgID = scope
	}

	tasks, total, err := h.Repository.ListTasks(c.Request.Context(), filter, toPage(q.PageQuery))
	if err != nil {
		h.internalError(c, err, "Ошибка получения заданий")
		return
	}

	resp := make([]dto.TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = toTaskResponse(&tasks[i])
	}
	c.JSON(http.StatusOK, paged(resp, total, q.PageQuery))
}

// CreateTask создание задания
// @Summary Создание задания
// @Description Задание создаётся черновиком. Автор задания текущий пользователь
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TaskCreateRequest true "Задание"
// @Success 201 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/tasks [post]
func (h *APIHandler) CreateTask(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	var req dto.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	orgID := req.OrgID
	if claims.Role != role.SuperAdmin {
		orgID = claims.OrgID
	}
	if orgID == nil {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Не указана организация")
		return
	}
	if claims.Role == role.SuperAdmin {
		_, err := h.Repository.GetOrganizationByID(c.Request.Context(), *orgID)
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Организация не найдена")
			return
		}
		if err != nil {
			h.internalError(c, err, "Ошибка получения организации")
			return
		}
	}

	teacherID := claims.UserID
	task := ds.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ModuleID:    req.ModuleID,
		TeacherID:   &teacherID,
		OrgID:       orgID,
		Deadline:    req.Deadline,
		MaxScore:    100,
		Status:      repository.TaskDraft,
	}
	if req.MaxScore != nil {
		task.MaxScore = *req.MaxScore
	}

	if err := h.Repository.CreateTask(c.Request.Context(), &task); err != nil {
		h.internalError(c, err, "Ошибка создания задания")
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(&task))
}

// UpdateTask изменение задания
// @Summary Изменение задания
// @Description Меняются только переданные поля
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID задания"
// @Param request body dto.TaskUpdateRequest true "Поля задания"
// @Success 200 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/tasks/{id} [put]
func (h *APIHandler) UpdateTask(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID задания")
		return
	}

	var req dto.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	if _, ok := h.loadTask(c, claims, id); !ok {
		return
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.ModuleID != nil {
		fields["module_id"] = *req.ModuleID
	}
	if req.Deadline != nil {
		fields["deadline"] = *req.Deadline
	}
	if req.MaxScore != nil {
		fields["max_score"] = *req.MaxScore
	}

	task, err := h.Repository.UpdateTask(c.Request.Context(), id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Задание не найдено")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка изменения задания")
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// DeleteTask удаление задания
// @Summary Удаление задания
// @Description Опубликованное задание с отчётами удалить нельзя
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID задания"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/cloud/tasks/{id} [delete]
func (h *APIHandler) DeleteTask(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID задания")
		return
	}

	if _, ok := h.loadTask(c, claims, id); !ok {
		return
	}

	err := h.Repository.DeleteTask(c.Request.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Задание не найдено")
		return
	case errors.Is(err, repository.ErrTaskHasReports):
		h.errorResponse(c, http.StatusConflict, "CONFLICT", "По заданию уже сданы отчёты")
		return
	case err != nil:
		h.internalError(c, err, "Ошибка удаления задания")
		return
	}
	h.successResponse(c, http.StatusOK, "Задание удалено", nil)
}

// PublishTask публикация задания
// @Summary Публикация задания
// @Description Опубликованное задание уходит клиентам при синхронизации
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID задания"
// @Success 200 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/tasks/{id}/publish [post]
func (h *APIHandler) PublishTask(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID задания")
		return
	}

	if _, ok := h.loadTask(c, claims, id); !ok {
		return
	}

	task, err := h.Repository.PublishTask(c.Request.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Задание не найдено")
		return
	case errors.Is(err, repository.ErrTaskNotDraft):
		h.errorResponse(c, http.StatusBadRequest, "TASK_NOT_DRAFT", "Опубликовать можно только черновик")
		return
	case err != nil:
		h.internalError(c, err, "Ошибка публикации задания")
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// ============ Отчёты ============

// GetReports список отчётов
// @Summary Список отчётов
// @Description Фильтры по заданию, студенту и статусу
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param task_id query int false "ID задания"
// @Param student_id query int false "ID студента"
// @Param status query string false "submitted или graded"
// @Param page query int false "Страница" default(1)
// @Param page_size query int false "Размер страницы" default(10)
// @Success 200 {object} dto.PagedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/cloud/reports [get]
func (h *APIHandler) GetReports(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	var q dto.ReportListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	filter := repository.ReportFilter{
		OrgID:     middleware.OrgScope(claims),
		TaskID:    q.TaskID,
		StudentID: q.StudentID,
		Status:    q.Status,
	}
	reports, total, err := h.Repository.ListReports(c.Request.Context(), filter, toPage(q.PageQuery))
	if err != nil {
		h.internalError(c, err, "Ошибка получения отчётов")
		return
	}

	resp := make([]dto.ReportResponse, len(reports))
	for i := range reports {
		resp[i] = toReportResponse(&reports[i])
	}
	c.JSON(http.StatusOK, paged(resp, total, q.PageQuery))
}

// UploadReport загрузка отчёта студента
// @Summary Загрузка отчёта
// @Description Файл сохраняется в MinIO. Задание должно быть опубликовано
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param task_id formData int true "ID задания"
// @Param student_id formData int true "ID студента"
// @Param file formData file true "Отчёт (pdf, doc, docx, zip)"
// @Success 201 {object} dto.ReportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/cloud/reports/upload [post]
func (h *APIHandler) UploadReport(c *gin.Context) {
	ctx := c.Request.Context()

	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	if h.Storage == nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Хранилище файлов не настроено")
		return
	}

	taskID, err := strconv.ParseUint(c.PostForm("task_id"), 10, 32)
	if err != nil || taskID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID задания")
		return
	}
	studentID, err := strconv.ParseUint(c.PostForm("student_id"), 10, 32)
	if err != nil || studentID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверный ID студента")
		return
	}

	task, ok := h.loadTask(c, claims, uint(taskID))
	if !ok {
		return
	}
	if task.Status != repository.TaskPublished {
		h.errorResponse(c, http.StatusBadRequest, "TASK_NOT_PUBLISHED", "Задание не опубликовано")
		return
	}

	student, err := h.Repository.GetUserByID(ctx, uint(studentID))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.internalError(c, err, "Ошибка получения студента")
		return
	}
	if student == nil || student.Role != role.Student.String() || !inScope(task.OrgID, student.OrgID) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Студент не найден")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Файл не передан")
		return
	}
	if file.Size <= 0 || file.Size > maxReportSize {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Недопустимый размер файла")
		return
	}
	if !reportExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Недопустимый тип файла")
		return
	}

	src, err := file.Open()
	if err != nil {
		h.internalError(c, err, "Ошибка чтения файла")
		return
	}
	defer src.Close()

	objectName := storage.ReportObjectName(task.ID, file.Filename)
	if err := h.Storage.UploadFile(ctx, objectName, src, file.Size); err != nil {
		h.internalError(c, err, "Ошибка загрузки отчёта")
		return
	}

	filename := filepath.Base(file.Filename)
	sid := student.ID
	report := ds.Report{
		TaskID:           &task.ID,
		StudentID:        &sid,
		FilePath:         &objectName,
		OriginalFilename: &filename,
		FileSize:         &file.Size,
		Status:           repository.ReportSubmitted,
	}
	if err := h.Repository.CreateReport(ctx, &report); err != nil {
		h.removeObject(ctx, objectName)
		h.internalError(c, err, "Ошибка сохранения отчёта")
		return
	}
	c.JSON(http.StatusCreated, toReportResponse(&report))
}

// GradeReport оценка отчёта
// @Summary Оценка отчёта
// @Description Повторная оценка перезаписывает прежнюю
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID отчёта"
// @Param request body dto.GradeRequest true "Оценка 0-100 и отзыв"
// @Success 200 {object} dto.ReportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/cloud/reports/{id}/grade [put]
func (h *APIHandler) GradeReport(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	var req dto.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	report, ok := h.loadReport(c, claims)
	if !ok {
		return
	}

	graded, err := h.Repository.GradeReport(c.Request.Context(), report.ID, *req.Score, req.Feedback, claims.UserID, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Отчёт не найден")
		return
	}
	if err != nil {
		h.internalError(c, err, "Ошибка выставления оценки")
		return
	}
	c.JSON(http.StatusOK, toReportResponse(graded))
}

// DownloadReport скачивание файла отчёта
// @Summary Скачивание отчёта
// @Description Перенаправление на временную ссылку MinIO
// @Tags Reports
// @Security BearerAuth
// @Param id path int true "ID отчёта"
// @Success 302 {string} string "Redirect"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/cloud/reports/{id}/download [get]
func (h *APIHandler) DownloadReport(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется авторизация")
		return
	}

	report, ok := h.loadReport(c, claims)
	if !ok {
		return
	}
	if report.FilePath == nil {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Файл отчёта не найден")
		return
	}
	if h.Storage == nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Хранилище файлов не настроено")
		return
	}

	url, err := h.Storage.GetFileURL(c.Request.Context(), *report.FilePath)
	if err != nil {
		h.internalError(c, err, "Ошибка получения ссылки на файл")
		return
	}
	c.Redirect(http.StatusFound, url)
}
