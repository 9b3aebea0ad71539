package handler

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/middleware"
	"licensecloud/internal/app/repository"
	"licensecloud/internal/app/role"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenClaims map[string]*ds.JWTClaims

func (tc tokenClaims) ParseAccessToken(token string) (*ds.JWTClaims, error) {
	claims, ok := tc[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func orgPtr(id uint) *uint { return &id }

// apiEnv полный набор маршрутов с авторизацией по фиксированным токенам.
type apiEnv struct {
	router  *gin.Engine
	store   *fakeStore
	storage *fakeStorage
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	signer, err := license.NewHMACSigner([]byte("handler-test-secret"))
	require.NoError(t, err)
	svc := license.NewService(license.NewMemoryStore(), license.NewCodec(signer))

	store := newFakeStore()
	store.orgs[1] = &ds.Organization{ID: 1, Name: "Школа 1"}
	store.orgs[2] = &ds.Organization{ID: 2, Name: "Школа 2"}
	store.users[10] = &ds.User{ID: 10, Username: "admin1", Role: role.OrgAdmin.String(), OrgID: orgPtr(1), IsActive: true}
	store.users[11] = &ds.User{ID: 11, Username: "teacher1", Role: role.Teacher.String(), OrgID: orgPtr(1), IsActive: true}
	store.users[12] = &ds.User{ID: 12, Username: "student1", Role: role.Student.String(), OrgID: orgPtr(1), IsActive: true}
	store.users[22] = &ds.User{ID: 22, Username: "student2", Role: role.Student.String(), OrgID: orgPtr(2), IsActive: true}
	store.users[1] = &ds.User{ID: 1, Username: "root", Role: role.SuperAdmin.String(), IsActive: true}
	store.users[30] = &ds.User{ID: 30, Username: "admin2", Role: role.OrgAdmin.String(), OrgID: orgPtr(1), IsActive: true}

	storage := newFakeStorage()
	tokens := tokenClaims{
		"super":    {UserID: 1, Role: role.SuperAdmin},
		"admin1":   {UserID: 10, Role: role.OrgAdmin, OrgID: orgPtr(1)},
		"teacher1": {UserID: 11, Role: role.Teacher, OrgID: orgPtr(1)},
		"teacher2": {UserID: 21, Role: role.Teacher, OrgID: orgPtr(2)},
		"student1": {UserID: 12, Role: role.Student, OrgID: orgPtr(1)},
	}

	h := NewAPIHandler(store, svc, nil, nil, storage)
	r := gin.New()
	h.RegisterAPIRoutes(r, middleware.NewAuthMiddleware(tokens, nil))

	return &apiEnv{router: r, store: store, storage: storage}
}

func (e *apiEnv) do(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := newJSONRequest(t, method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) upload(t *testing.T, token string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/cloud/reports/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) addTask(orgID uint, status string) *ds.Task {
	task := &ds.Task{ID: e.store.id(), Title: "Закон Ома", OrgID: orgPtr(orgID), MaxScore: 100, Status: status}
	e.store.tasks[task.ID] = task
	return task
}

func (e *apiEnv) addReport(taskID, studentID uint, objectName string) *ds.Report {
	report := &ds.Report{ID: e.store.id(), TaskID: &taskID, StudentID: &studentID, Status: repository.ReportSubmitted}
	if objectName != "" {
		report.FilePath = &objectName
		e.storage.objects[objectName] = []byte("pdf")
	}
	e.store.reports[report.ID] = report
	return report
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.ErrorResponse
	decode(t, w, &resp)
	return resp.Code
}

func TestCreateTask(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, "teacher1", http.MethodPost, "/api/cloud/tasks", dto.TaskCreateRequest{Title: "  Маятник  ", OrgID: orgPtr(2)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskResponse
	decode(t, w, &task)
	assert.Equal(t, "Маятник", task.Title)
	assert.Equal(t, repository.TaskDraft, task.Status)
	assert.Equal(t, 100, task.MaxScore)
	require.NotNil(t, task.TeacherID)
	assert.Equal(t, uint(11), *task.TeacherID)
	// организация берётся из токена, а не из тела
	require.NotNil(t, task.OrgID)
	assert.Equal(t, uint(1), *task.OrgID)

	w = env.do(t, "super", http.MethodPost, "/api/cloud/tasks", dto.TaskCreateRequest{Title: "Линзы"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "super", http.MethodPost, "/api/cloud/tasks", dto.TaskCreateRequest{Title: "Линзы", OrgID: orgPtr(99)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "student1", http.MethodPost, "/api/cloud/tasks", dto.TaskCreateRequest{Title: "Линзы"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetTasksScopedToOrganization(t *testing.T) {
	env := newAPIEnv(t)
	env.addTask(1, repository.TaskDraft)
	env.addTask(1, repository.TaskPublished)
	env.addTask(2, repository.TaskPublished)

	var page struct {
		Items []dto.TaskResponse `json:"items"`
		Total int64              `json:"total"`
	}

	w := env.do(t, "teacher1", http.MethodGet, "/api/cloud/tasks?org_id=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &page)
	assert.Equal(t, int64(2), page.Total)

	w = env.do(t, "super", http.MethodGet, "/api/cloud/tasks?status=published", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, int64(2), page.Total)

	w = env.do(t, "super", http.MethodGet, "/api/cloud/tasks?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishTask(t *testing.T) {
	env := newAPIEnv(t)
	draft := env.addTask(1, repository.TaskDraft)
	foreign := env.addTask(2, repository.TaskDraft)

	w := env.do(t, "teacher1", http.MethodPost, "/api/cloud/tasks/"+itoa(draft.ID)+"/publish", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var task dto.TaskResponse
	decode(t, w, &task)
	assert.Equal(t, repository.TaskPublished, task.Status)

	w = env.do(t, "teacher1", http.MethodPost, "/api/cloud/tasks/"+itoa(draft.ID)+"/publish", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TASK_NOT_DRAFT", errorCode(t, w))

	w = env.do(t, "teacher1", http.MethodPost, "/api/cloud/tasks/"+itoa(foreign.ID)+"/publish", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, repository.TaskDraft, env.store.tasks[foreign.ID].Status)
}

func TestUpdateTask(t *testing.T) {
	env := newAPIEnv(t)
	task := env.addTask(1, repository.TaskDraft)

	title := "Закон Ома для участка цепи"
	score := 50
	w := env.do(t, "admin1", http.MethodPut, "/api/cloud/tasks/"+itoa(task.ID), dto.TaskUpdateRequest{Title: &title, MaxScore: &score})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.TaskResponse
	decode(t, w, &resp)
	assert.Equal(t, title, resp.Title)
	assert.Equal(t, 50, resp.MaxScore)

	w = env.do(t, "teacher2", http.MethodPut, "/api/cloud/tasks/"+itoa(task.ID), dto.TaskUpdateRequest{Title: &title})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "admin1", http.MethodPut, "/api/cloud/tasks/"+itoa(task.ID), map[string]interface{}{"max_score": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTask(t *testing.T) {
	env := newAPIEnv(t)
	submitted := env.addTask(1, repository.TaskPublished)
	env.addReport(submitted.ID, 12, "")
	empty := env.addTask(1, repository.TaskPublished)

	w := env.do(t, "teacher1", http.MethodDelete, "/api/cloud/tasks/"+itoa(submitted.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "CONFLICT", errorCode(t, w))
	assert.Contains(t, env.store.tasks, submitted.ID)

	w = env.do(t, "teacher1", http.MethodDelete, "/api/cloud/tasks/"+itoa(empty.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, env.store.tasks, empty.ID)

	w = env.do(t, "teacher1", http.MethodDelete, "/api/cloud/tasks/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadReport(t *testing.T) {
	env := newAPIEnv(t)
	task := env.addTask(1, repository.TaskPublished)
	draft := env.addTask(1, repository.TaskDraft)

	fields := map[string]string{"task_id": itoa(task.ID), "student_id": "12"}
	w := env.upload(t, "teacher1", fields, "report.PDF", []byte("%PDF-1.7"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var report dto.ReportResponse
	decode(t, w, &report)
	assert.Equal(t, repository.ReportSubmitted, report.Status)
	require.NotNil(t, report.OriginalFilename)
	assert.Equal(t, "report.PDF", *report.OriginalFilename)
	require.NotNil(t, report.FileSize)
	assert.Equal(t, int64(8), *report.FileSize)

	stored := env.store.reports[report.ID]
	require.NotNil(t, stored.FilePath)
	assert.Equal(t, []byte("%PDF-1.7"), env.storage.objects[*stored.FilePath])

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		status   int
	}{
		{"draft task", map[string]string{"task_id": itoa(draft.ID), "student_id": "12"}, "a.pdf", http.StatusBadRequest},
		{"student of another org", map[string]string{"task_id": itoa(task.ID), "student_id": "22"}, "a.pdf", http.StatusNotFound},
		{"not a student", map[string]string{"task_id": itoa(task.ID), "student_id": "11"}, "a.pdf", http.StatusNotFound},
		{"bad extension", fields, "a.exe", http.StatusBadRequest},
		{"no file", fields, "", http.StatusBadRequest},
		{"bad task id", map[string]string{"task_id": "x", "student_id": "12"}, "a.pdf", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.upload(t, "teacher1", tt.fields, tt.filename, []byte("data"))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
	assert.Len(t, env.storage.objects, 1)
}

func TestGradeReport(t *testing.T) {
	env := newAPIEnv(t)
	task := env.addTask(1, repository.TaskPublished)
	report := env.addReport(task.ID, 12, "reports/task_1_a.pdf")

	score := 87
	feedback := "Хорошая работа"
	w := env.do(t, "teacher1", http.MethodPut, "/api/cloud/reports/"+itoa(report.ID)+"/grade", dto.GradeRequest{Score: &score, Feedback: &feedback})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.ReportResponse
	decode(t, w, &resp)
	assert.Equal(t, repository.ReportGraded, resp.Status)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 87, *resp.Score)
	require.NotNil(t, resp.GraderID)
	assert.Equal(t, uint(11), *resp.GraderID)
	assert.NotNil(t, resp.GradedAt)

	tests := []struct {
		name   string
		token  string
		body   interface{}
		status int
	}{
		{"zero score", "teacher1", map[string]int{"score": 0}, http.StatusOK},
		{"score above 100", "teacher1", map[string]int{"score": 101}, http.StatusBadRequest},
		{"negative score", "teacher1", map[string]int{"score": -1}, http.StatusBadRequest},
		{"missing score", "teacher1", map[string]string{"feedback": "ок"}, http.StatusBadRequest},
		{"foreign organization", "teacher2", map[string]int{"score": 50}, http.StatusNotFound},
		{"student", "student1", map[string]int{"score": 50}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.token, http.MethodPut, "/api/cloud/reports/"+itoa(report.ID)+"/grade", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDownloadReport(t *testing.T) {
	env := newAPIEnv(t)
	task := env.addTask(1, repository.TaskPublished)
	withFile := env.addReport(task.ID, 12, "reports/task_1_b.pdf")
	withoutFile := env.addReport(task.ID, 12, "")

	w := env.do(t, "admin1", http.MethodGet, "/api/cloud/reports/"+itoa(withFile.ID)+"/download", nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "https://files.test/reports/task_1_b.pdf", w.Header().Get("Location"))

	w = env.do(t, "admin1", http.MethodGet, "/api/cloud/reports/"+itoa(withoutFile.ID)+"/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "teacher2", http.MethodGet, "/api/cloud/reports/"+itoa(withFile.ID)+"/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetReportsScopedToOrganization(t *testing.T) {
	env := newAPIEnv(t)
	own := env.addTask(1, repository.TaskPublished)
	foreign := env.addTask(2, repository.TaskPublished)
	env.addReport(own.ID, 12, "")
	env.addReport(foreign.ID, 22, "")

	var page struct {
		Items []dto.ReportResponse `json:"items"`
		Total int64                `json:"total"`
	}
	w := env.do(t, "teacher1", http.MethodGet, "/api/cloud/reports", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &page)
	assert.Equal(t, int64(1), page.Total)

	w = env.do(t, "super", http.MethodGet, "/api/cloud/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, int64(2), page.Total)
}

func TestUpdateUser(t *testing.T) {
	env := newAPIEnv(t)

	name := "Петров П."
	active := false
	w := env.do(t, "admin1", http.MethodPut, "/api/cloud/users/12", dto.UserUpdateRequest{RealName: &name, IsActive: &active})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user dto.UserResponse
	decode(t, w, &user)
	assert.False(t, user.IsActive)
	require.NotNil(t, user.RealName)
	assert.Equal(t, name, *user.RealName)

	admin := role.OrgAdmin.String()
	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"promote to admin", "/api/cloud/users/11", dto.UserUpdateRequest{Role: &admin}, http.StatusForbidden},
		{"edit another admin", "/api/cloud/users/30", dto.UserUpdateRequest{RealName: &name}, http.StatusForbidden},
		{"foreign organization", "/api/cloud/users/22", dto.UserUpdateRequest{RealName: &name}, http.StatusNotFound},
		{"unknown role", "/api/cloud/users/11", map[string]string{"role": "dean"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "admin1", http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w = env.do(t, "super", http.MethodPut, "/api/cloud/users/30", dto.UserUpdateRequest{Role: &admin, IsActive: &active})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "super", http.MethodPut, "/api/cloud/users/1", dto.UserUpdateRequest{IsActive: &active})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.True(t, env.store.users[1].IsActive)
}

func TestGetAnalyticsTrends(t *testing.T) {
	env := newAPIEnv(t)
	day := func(d int) time.Time { return time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC) }
	env.store.trends = []repository.TrendPoint{
		{ReportDate: day(1), ActiveUsers: 5, ExperimentCount: 9},
		{ReportDate: day(2), ActiveUsers: 7, ExperimentCount: 11},
		{ReportDate: day(20), ActiveUsers: 1, ExperimentCount: 1},
	}

	w := env.do(t, "super", http.MethodGet, "/api/cloud/analytics/trends?start=2026-04-01&end=2026-04-10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.TrendsResponse
	decode(t, w, &resp)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "2026-04-01", resp.Data[0].ReportDate)
	assert.Equal(t, int64(7), resp.Data[1].ActiveUsers)

	w = env.do(t, "super", http.MethodGet, "/api/cloud/analytics/trends?start=2026-04-10&end=2026-04-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "super", http.MethodGet, "/api/cloud/analytics/trends?start=2026-04-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "admin1", http.MethodGet, "/api/cloud/analytics/trends?start=2026-04-01&end=2026-04-10", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
