package dto

import "time"

// ============ Общие структуры ============

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type PagedResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Pages    int         `json:"pages"`
}

type PageQuery struct {
	Page     int `form:"page,default=1" binding:"gte=1"`
	PageSize int `form:"page_size,default=10" binding:"gte=1,lte=50"`
}

// ============ Аутентификация ============

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ============ Пользователи ============

type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	RealName  *string   `json:"real_name"`
	OrgID     *uint     `json:"org_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Password string  `json:"password" binding:"required,min=6"`
	Role     string  `json:"role" binding:"required,user_role"`
	RealName *string `json:"real_name" binding:"omitempty,max=50"`
	OrgID    *uint   `json:"org_id"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

type UserUpdateRequest struct {
	RealName *string `json:"real_name" binding:"omitempty,max=50"`
	Role     *string `json:"role" binding:"omitempty,user_role"`
	IsActive *bool   `json:"is_active"`
}

// ============ Организации ============

type OrgCreateRequest struct {
	Name         string  `json:"name" binding:"required,max=100"`
	ContactName  *string `json:"contact_name" binding:"omitempty,max=50"`
	ContactPhone *string `json:"contact_phone" binding:"omitempty,max=20"`
	Address      *string `json:"address" binding:"omitempty,max=200"`
	LicenseQuota *int    `json:"license_quota" binding:"omitempty,gte=0"`
}

type OrgUpdateRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=100"`
	ContactName  *string `json:"contact_name" binding:"omitempty,max=50"`
	ContactPhone *string `json:"contact_phone" binding:"omitempty,max=20"`
	Address      *string `json:"address" binding:"omitempty,max=200"`
	LicenseQuota *int    `json:"license_quota" binding:"omitempty,gte=0"`
}

type OrgResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	ContactName  *string   `json:"contact_name"`
	ContactPhone *string   `json:"contact_phone"`
	Address      *string   `json:"address"`
	LicenseQuota int       `json:"license_quota"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type OrgDetailResponse struct {
	OrgResponse
	LicenseCount       int64 `json:"license_count"`
	ActiveLicenseCount int64 `json:"active_license_count"`
	UserCount          int64 `json:"user_count"`
}

// ============ Лицензии ============

type LicenseCreateRequest struct {
	OrgID       uint   `json:"org_id" binding:"required"`
	LicenseType string `json:"license_type" binding:"required,license_type"`
}

type LicenseListQuery struct {
	PageQuery
	OrgID *uint `form:"org_id"`
}

type LicenseResponse struct {
	ID          uint       `json:"id"`
	LicenseKey  string     `json:"license_key"`
	OrgID       uint       `json:"org_id"`
	LicenseType string     `json:"license_type"`
	MachineID   *string    `json:"machine_id"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt *time.Time `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ActivateRequest struct {
	LicenseKey string `json:"license_key" binding:"required,license_key"`
	MachineID  string `json:"machine_id" binding:"required,max=64"`
}

type ActivateResponse struct {
	ActivationToken string     `json:"activation_token"`
	ExpiresAt       *time.Time `json:"expires_at"`
	LicenseType     string     `json:"license_type"`
}

type VerifyRequest struct {
	ActivationToken string `json:"activation_token" binding:"required"`
}

type VerifyResponse struct {
	IsActive    bool       `json:"is_active"`
	LicenseType *string    `json:"license_type"`
	ExpiresAt   *time.Time `json:"expires_at"`
	MachineID   *string    `json:"machine_id"`
	Error       *string    `json:"error,omitempty"`
}

// ============ Задания и отчёты ============

type TaskListQuery struct {
	PageQuery
	OrgID  *uint  `form:"org_id"`
	Status string `form:"status" binding:"omitempty,oneof=draft published"`
}

type TaskCreateRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	ModuleID    *string    `json:"module_id" binding:"omitempty,max=50"`
	OrgID       *uint      `json:"org_id"`
	Deadline    *time.Time `json:"deadline"`
	MaxScore    *int       `json:"max_score" binding:"omitempty,gte=1,lte=1000"`
}

type TaskUpdateRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	ModuleID    *string    `json:"module_id" binding:"omitempty,max=50"`
	Deadline    *time.Time `json:"deadline"`
	MaxScore    *int       `json:"max_score" binding:"omitempty,gte=1,lte=1000"`
}

type ReportListQuery struct {
	PageQuery
	TaskID    *uint  `form:"task_id"`
	StudentID *uint  `form:"student_id"`
	Status    string `form:"status" binding:"omitempty,oneof=submitted graded"`
}

type ReportResponse struct {
	ID               uint       `json:"id"`
	TaskID           *uint      `json:"task_id"`
	StudentID        *uint      `json:"student_id"`
	OriginalFilename *string    `json:"original_filename"`
	FileSize         *int64     `json:"file_size"`
	Score            *int       `json:"score"`
	Feedback         *string    `json:"feedback"`
	GraderID         *uint      `json:"grader_id"`
	Status           string     `json:"status"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	GradedAt         *time.Time `json:"graded_at"`
}

// GradeRequest оценка по 100-балльной шкале.
type GradeRequest struct {
	Score    *int    `json:"score" binding:"required,gte=0,lte=100"`
	Feedback *string `json:"feedback" binding:"omitempty,max=2000"`
}

// ============ Синхронизация ============

type SyncQuery struct {
	Since time.Time `form:"since" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type GradesQuery struct {
	SyncQuery
	StudentID uint `form:"student_id" binding:"required"`
}

type TaskResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ModuleID    *string    `json:"module_id"`
	TeacherID   *uint      `json:"teacher_id"`
	OrgID       *uint      `json:"org_id"`
	Deadline    *time.Time `json:"deadline"`
	MaxScore    int        `json:"max_score"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type GradeResponse struct {
	ID          uint       `json:"id"`
	TaskID      *uint      `json:"task_id"`
	StudentID   *uint      `json:"student_id"`
	Score       *int       `json:"score"`
	Feedback    *string    `json:"feedback"`
	GraderID    *uint      `json:"grader_id"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at"`
}

type AnalyticsUploadRequest struct {
	ReportDate      string         `json:"report_date" binding:"required,datetime=2006-01-02"`
	ActiveUserCount int            `json:"active_user_count" binding:"gte=0"`
	ExperimentCount int            `json:"experiment_count" binding:"gte=0"`
	ModuleUsage     map[string]int `json:"module_usage" binding:"omitempty,dive,gte=0"`
}

type AnalyticsResponse struct {
	ID              uint           `json:"id"`
	LicenseID       *uint          `json:"license_id"`
	OrgID           *uint          `json:"org_id"`
	ReportDate      string         `json:"report_date"`
	ActiveUserCount int            `json:"active_user_count"`
	ExperimentCount int            `json:"experiment_count"`
	ModuleUsage     map[string]int `json:"module_usage"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ============ Статистика ============

type OrgSummary struct {
	OrgID           uint   `json:"org_id"`
	OrgName         string `json:"org_name"`
	ActiveUsers     int64  `json:"active_users"`
	ExperimentCount int64  `json:"experiment_count"`
	LastActive      string `json:"last_active"`
}

type OverviewResponse struct {
	TotalActiveOrgs    int64        `json:"total_active_orgs"`
	ActiveUsersLast30d int64        `json:"active_users_last_30d"`
	TotalExperiments   int64        `json:"total_experiments"`
	OrgSummaries       []OrgSummary `json:"org_summaries"`
}

type TrendsQuery struct {
	Start string `form:"start" binding:"required,datetime=2006-01-02"`
	End   string `form:"end" binding:"required,datetime=2006-01-02"`
}

type TrendPoint struct {
	ReportDate      string `json:"report_date"`
	ActiveUsers     int64  `json:"active_users"`
	ExperimentCount int64  `json:"experiment_count"`
}

type TrendsResponse struct {
	Data []TrendPoint `json:"data"`
}

type ModuleUsageItem struct {
	ModuleID   string `json:"module_id"`
	TotalCount int    `json:"total_count"`
}

type DashboardResponse struct {
	TotalOrganizations int64 `json:"total_organizations"`
	TotalLicenses      int64 `json:"total_licenses"`
	ActiveLicenses     int64 `json:"active_licenses"`
	PendingReports     int64 `json:"pending_reports"`
}

// ============ Обновления ============

type UpdateCreateRequest struct {
	Version      string `json:"version" binding:"required,max=20,semver"`
	ReleaseDate  string `json:"release_date" binding:"required,datetime=2006-01-02"`
	ReleaseNotes string `json:"release_notes"`
	IsMandatory  bool   `json:"is_mandatory"`
}

type UpdateResponse struct {
	ID           uint      `json:"id"`
	Version      string    `json:"version"`
	ReleaseDate  string    `json:"release_date"`
	ReleaseNotes string    `json:"release_notes"`
	FileSize     *int64    `json:"file_size"`
	HasPackage   bool      `json:"has_package"`
	IsMandatory  bool      `json:"is_mandatory"`
	CreatedAt    time.Time `json:"created_at"`
	DownloadURL  string    `json:"download_url,omitempty"`
}

type UpdateCheckQuery struct {
	Version string `form:"version" binding:"required,semver"`
}

type UpdateCheckResponse struct {
	UpToDate bool            `json:"up_to_date"`
	Latest   *UpdateResponse `json:"latest,omitempty"`
}
