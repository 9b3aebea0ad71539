package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/dto"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testEnv struct {
	router   *gin.Engine
	licenses *license.Service
	store    *fakeStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	signer, err := license.NewHMACSigner([]byte("handler-test-secret"))
	require.NoError(t, err)
	svc := license.NewService(license.NewMemoryStore(), license.NewCodec(signer))

	store := newFakeStore()
	store.orgs[1] = &ds.Organization{ID: 1, Name: "Школа 1"}
	store.orgs[4] = &ds.Organization{ID: 4, Name: "Колледж 4"}

	h := NewAPIHandler(store, svc, nil, nil, nil)
	r := gin.New()
	r.POST("/licenses/activate", h.ActivateLicense)
	r.POST("/licenses/verify", h.VerifyLicense)
	r.POST("/licenses/generate", h.GenerateLicense)
	r.GET("/licenses/:id", h.GetLicense)
	r.PUT("/licenses/:id/revoke", h.RevokeLicense)
	r.GET("/licenses", h.GetLicenses)
	r.DELETE("/orgs/:id", h.DeleteOrganization)

	return &testEnv{router: r, licenses: svc, store: store}
}

func newJSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, newJSONRequest(t, method, path, body))
	return w
}

func (e *testEnv) newLicense(t *testing.T, typ license.Type) *ds.License {
	t.Helper()
	l, err := e.licenses.Create(context.Background(), 1, typ)
	require.NoError(t, err)
	return l
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestActivateLicense(t *testing.T) {
	env := newTestEnv(t)
	l := env.newLicense(t, license.TypeTrial)

	w := env.do(t, http.MethodPost, "/licenses/activate", dto.ActivateRequest{LicenseKey: l.LicenseKey, MachineID: "PC-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.ActivateResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.ActivationToken)
	assert.Equal(t, "trial", resp.LicenseType)
	require.NotNil(t, resp.ExpiresAt)

	// повторная активация на той же машине не меняет срок
	w = env.do(t, http.MethodPost, "/licenses/activate", dto.ActivateRequest{LicenseKey: l.LicenseKey, MachineID: "PC-01"})
	require.Equal(t, http.StatusOK, w.Code)
	var again dto.ActivateResponse
	decode(t, w, &again)
	assert.True(t, resp.ExpiresAt.Equal(*again.ExpiresAt))
}

func TestActivateLicenseErrors(t *testing.T) {
	env := newTestEnv(t)

	bound := env.newLicense(t, license.TypePermanent)
	_, err := env.licenses.Activate(context.Background(), bound.LicenseKey, "PC-01")
	require.NoError(t, err)

	revoked := env.newLicense(t, license.TypeEducation)
	_, err = env.licenses.Revoke(context.Background(), revoked.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown key", dto.ActivateRequest{LicenseKey: "0000-0000-0000-0000", MachineID: "PC-01"}, http.StatusNotFound, "LICENSE_NOT_FOUND"},
		{"bound elsewhere", dto.ActivateRequest{LicenseKey: bound.LicenseKey, MachineID: "PC-02"}, http.StatusConflict, "LICENSE_ALREADY_BOUND"},
		{"revoked", dto.ActivateRequest{LicenseKey: revoked.LicenseKey, MachineID: "PC-01"}, http.StatusBadRequest, "LICENSE_REVOKED"},
		{"malformed key", dto.ActivateRequest{LicenseKey: "not-a-key", MachineID: "PC-01"}, http.StatusBadRequest, "VALIDATION"},
		{"blank machine", dto.ActivateRequest{LicenseKey: bound.LicenseKey, MachineID: "   "}, http.StatusBadRequest, "INVALID_MACHINE_ID"},
		{"missing machine", map[string]string{"license_key": bound.LicenseKey}, http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/licenses/activate", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp dto.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, "fail", resp.Status)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestVerifyLicense(t *testing.T) {
	env := newTestEnv(t)
	l := env.newLicense(t, license.TypePermanent)

	res, err := env.licenses.Activate(context.Background(), l.LicenseKey, "PC-07")
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/licenses/verify", dto.VerifyRequest{ActivationToken: res.ActivationToken})
	require.Equal(t, http.StatusOK, w.Code)
	var ok dto.VerifyResponse
	decode(t, w, &ok)
	assert.True(t, ok.IsActive)
	require.NotNil(t, ok.MachineID)
	assert.Equal(t, "PC-07", *ok.MachineID)
	assert.Nil(t, ok.ExpiresAt)
	assert.Nil(t, ok.Error)

	w = env.do(t, http.MethodPost, "/licenses/verify", dto.VerifyRequest{ActivationToken: "garbage"})
	require.Equal(t, http.StatusOK, w.Code)
	var bad dto.VerifyResponse
	decode(t, w, &bad)
	assert.False(t, bad.IsActive)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "INVALID_TOKEN", *bad.Error)

	_, err = env.licenses.Revoke(context.Background(), l.ID)
	require.NoError(t, err)

	w = env.do(t, http.MethodPost, "/licenses/verify", dto.VerifyRequest{ActivationToken: res.ActivationToken})
	var revoked dto.VerifyResponse
	decode(t, w, &revoked)
	assert.False(t, revoked.IsActive)
	require.NotNil(t, revoked.Error)
	assert.Equal(t, "LICENSE_REVOKED", *revoked.Error)
}

func TestGenerateAndRevokeLicense(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/licenses/generate", dto.LicenseCreateRequest{OrgID: 4, LicenseType: "education"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.LicenseResponse
	decode(t, w, &created)
	assert.True(t, license.ValidKey(created.LicenseKey))
	assert.True(t, created.IsActive)
	assert.Nil(t, created.MachineID)

	w = env.do(t, http.MethodPost, "/licenses/generate", map[string]interface{}{"org_id": 4, "license_type": "gold"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/licenses/"+itoa(created.ID)+"/revoke", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var revoked dto.LicenseResponse
	decode(t, w, &revoked)
	assert.False(t, revoked.IsActive)

	w = env.do(t, http.MethodPut, "/licenses/999/revoke", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/licenses/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateLicenseUnknownOrganization(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/licenses/generate", dto.LicenseCreateRequest{OrgID: 77, LicenseType: "trial"})
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	var resp dto.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	items, total, err := env.licenses.List(context.Background(), license.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestDeleteOrganization(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		err    error
		status int
		code   string
	}{
		{"active licenses", "1", repository.ErrActiveLicenses, http.StatusConflict, "CONFLICT"},
		{"referenced", "1", repository.ErrInUse, http.StatusConflict, "CONFLICT"},
		{"missing", "77", nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.store.deleteOrgErr = tt.err

			w := env.do(t, http.MethodDelete, "/orgs/"+tt.id, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var resp dto.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.Contains(t, env.store.orgs, uint(1))
		})
	}

	env := newTestEnv(t)
	w := env.do(t, http.MethodDelete, "/orgs/4", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, env.store.orgs, uint(4))
}

func TestGetLicensesPaging(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.newLicense(t, license.TypeTrial)
	}

	w := env.do(t, http.MethodGet, "/licenses?page=2&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []dto.LicenseResponse `json:"items"`
		Total int64                 `json:"total"`
		Pages int                   `json:"pages"`
	}
	decode(t, w, &resp)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.Pages)
	assert.Len(t, resp.Items, 1)

	w = env.do(t, http.MethodGet, "/licenses?page_size=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestUpdate(t *testing.T) {
	updates := []ds.SoftwareUpdate{
		{ID: 1, Version: "1.2.0"},
		{ID: 2, Version: "1.10.0"},
		{ID: 3, Version: "broken"},
		{ID: 4, Version: "1.9.3"},
	}

	latest, v := latestUpdate(updates)
	require.NotNil(t, latest)
	assert.Equal(t, uint(2), latest.ID)
	assert.Equal(t, "1.10.0", v.String())

	latest, v = latestUpdate(nil)
	assert.Nil(t, latest)
	assert.Nil(t, v)
}

func TestModuleUsageItems(t *testing.T) {
	items := moduleUsageItems(map[string]int{"optics": 3, "circuits": 7, "acoustics": 3})
	require.Len(t, items, 3)
	assert.Equal(t, "circuits", items[0].ModuleID)
	assert.Equal(t, "acoustics", items[1].ModuleID)
	assert.Equal(t, "optics", items[2].ModuleID)
}

func TestToVerifyResponse(t *testing.T) {
	inactive := toVerifyResponse(&license.VerificationResult{Error: license.CodeLicenseExpired})
	assert.False(t, inactive.IsActive)
	assert.Nil(t, inactive.LicenseType)
	assert.Nil(t, inactive.MachineID)
	require.NotNil(t, inactive.Error)
	assert.Equal(t, "LICENSE_EXPIRED", *inactive.Error)

	exp := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	active := toVerifyResponse(&license.VerificationResult{
		IsActive:    true,
		LicenseType: license.TypeTrial,
		ExpiresAt:   &exp,
		MachineID:   "PC-01",
	})
	assert.True(t, active.IsActive)
	assert.Equal(t, "trial", *active.LicenseType)
	assert.Equal(t, "PC-01", *active.MachineID)
	assert.Nil(t, active.Error)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
