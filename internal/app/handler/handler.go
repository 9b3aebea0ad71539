package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"licensecloud/internal/app/auth"
	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// dateLayout формат дат без времени (report_date, release_date)
const dateLayout = "2006-01-02"

// PackageStorage хранилище пакетов обновлений (MinIO).
type PackageStorage interface {
	UploadFile(ctx context.Context, objectName string, r io.Reader, size int64) error
	DeleteFile(ctx context.Context, objectName string) error
	GetFileURL(ctx context.Context, objectName string) (string, error)
	FileExists(ctx context.Context, objectName string) (bool, error)
}

type OrganizationStore interface {
	ListOrganizations(ctx context.Context, search string, p repository.Page) ([]ds.Organization, int64, error)
	GetOrganizationByID(ctx context.Context, id uint) (*ds.Organization, error)
	CreateOrganization(ctx context.Context, org *ds.Organization) error
	UpdateOrganization(ctx context.Context, id uint, fields map[string]interface{}) (*ds.Organization, error)
	DeleteOrganization(ctx context.Context, id uint) error
	GetOrganizationStats(ctx context.Context, id uint) (*repository.OrganizationStats, error)
	OrganizationNames(ctx context.Context, ids []uint) (map[uint]string, error)
}

type UserStore interface {
	GetUserByID(ctx context.Context, id uint) (*ds.User, error)
	ListUsers(ctx context.Context, orgID *uint, p repository.Page) ([]ds.User, int64, error)
	CreateUser(ctx context.Context, user *ds.User) error
	UpdateUser(ctx context.Context, id uint, fields map[string]interface{}) (*ds.User, error)
	ResetPassword(ctx context.Context, userID uint, passwordHash string) error
}

// CourseworkStore задания и отчёты.
type CourseworkStore interface {
	ListTasks(ctx context.Context, f repository.TaskFilter, p repository.Page) ([]ds.Task, int64, error)
	GetTaskByID(ctx context.Context, id uint) (*ds.Task, error)
	CreateTask(ctx context.Context, task *ds.Task) error
	UpdateTask(ctx context.Context, id uint, fields map[string]interface{}) (*ds.Task, error)
	PublishTask(ctx context.Context, id uint) (*ds.Task, error)
	DeleteTask(ctx context.Context, id uint) error
	ListReports(ctx context.Context, f repository.ReportFilter, p repository.Page) ([]ds.Report, int64, error)
	GetReportByID(ctx context.Context, id uint) (*ds.Report, error)
	CreateReport(ctx context.Context, report *ds.Report) error
	GradeReport(ctx context.Context, id uint, score int, feedback *string, graderID uint, gradedAt time.Time) (*ds.Report, error)
}

// SyncStore выгрузки для клиента и приём его данных.
type SyncStore interface {
	PublishedTasksSince(ctx context.Context, orgID uint, since time.Time) ([]ds.Task, error)
	OrgUsersSince(ctx context.Context, orgID uint, since time.Time) ([]ds.User, error)
	GradedReportsSince(ctx context.Context, orgID, studentID uint, since time.Time) ([]ds.Report, error)
	CreateSyncLog(ctx context.Context, log *ds.SyncLog) error
	CreateAnalytics(ctx context.Context, rec *ds.Analytics) error
}

type AnalyticsStore interface {
	GetAnalyticsOverview(ctx context.Context, since time.Time) (*repository.AnalyticsOverview, error)
	AnalyticsTrends(ctx context.Context, start, end time.Time) ([]repository.TrendPoint, error)
	ModuleUsageTotals(ctx context.Context) (map[string]int, error)
	GetDashboard(ctx context.Context) (*repository.Dashboard, error)
}

type UpdateStore interface {
	ListUpdates(ctx context.Context, p repository.Page) ([]ds.SoftwareUpdate, int64, error)
	AllUpdates(ctx context.Context) ([]ds.SoftwareUpdate, error)
	GetUpdateByID(ctx context.Context, id uint) (*ds.SoftwareUpdate, error)
	CreateUpdate(ctx context.Context, upd *ds.SoftwareUpdate) error
	SetUpdatePackage(ctx context.Context, id uint, objectName string, size int64) error
}

// Store всё, что обработчикам нужно от базы. Реализуется *repository.Repository.
type Store interface {
	OrganizationStore
	UserStore
	CourseworkStore
	SyncStore
	AnalyticsStore
	UpdateStore
}

var _ Store = (*repository.Repository)(nil)

// TokenRevoker blacklist access-токенов при выходе.
type TokenRevoker interface {
	WriteJWTToBlacklist(ctx context.Context, jwtStr string, jwtTTL time.Duration) error
}

// APIHandler содержит обработчики для REST API
type APIHandler struct {
	Repository Store
	Licenses   *license.Service
	Auth       *auth.Service
	Revoker    TokenRevoker
	Storage    PackageStorage
}

func NewAPIHandler(r Store, licenses *license.Service, authService *auth.Service, revoker TokenRevoker, storage PackageStorage) *APIHandler {
	return &APIHandler{
		Repository: r,
		Licenses:   licenses,
		Auth:       authService,
		Revoker:    revoker,
		Storage:    storage,
	}
}

// ============ Вспомогательные функции ============

func (h *APIHandler) errorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.ErrorResponse{
		Status:  "fail",
		Code:    code,
		Message: message,
	})
}

func (h *APIHandler) successResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := dto.SuccessResponse{
		Status:  "success",
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(statusCode, response)
}

// internalError логирует причину, клиенту уходит общее сообщение
func (h *APIHandler) internalError(c *gin.Context, err error, message string) {
	logrus.WithError(err).WithField("path", c.FullPath()).Error(message)
	h.errorResponse(c, http.StatusInternalServerError, "INTERNAL", message)
}

func (h *APIHandler) bindError(c *gin.Context, err error) {
	h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Неверные данные: "+err.Error())
}

// licenseError переводит ошибки домена лицензий в HTTP-статус.
func (h *APIHandler) licenseError(c *gin.Context, err error) {
	var le *license.Error
	if !errors.As(err, &le) {
		h.internalError(c, err, "license operation failed")
		return
	}

	status := http.StatusBadRequest
	switch le.Code {
	case license.CodeLicenseNotFound, license.CodeNotFound:
		status = http.StatusNotFound
	case license.CodeLicenseAlreadyBound:
		status = http.StatusConflict
	}
	h.errorResponse(c, status, string(le.Code), le.Message)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func paged(items interface{}, total int64, q dto.PageQuery) dto.PagedResponse {
	p := repository.Page{Page: q.Page, PageSize: q.PageSize}
	return dto.PagedResponse{
		Items:    items,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
		Pages:    p.Pages(total),
	}
}

func toPage(q dto.PageQuery) repository.Page {
	return repository.Page{Page: q.Page, PageSize: q.PageSize}
}
