package handler

import (
	"net/http"
	"sort"
	"time"

	"licensecloud/internal/app/dto"

	"github.com/gin-gonic/gin"
)

const overviewPeriod = 30 * 24 * time.Hour

// GetAnalyticsOverview сводка по организациям
// @Summary Сводная статистика
// @Description Активные организации и пользователи за последние 30 дней, эксперименты по организациям
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.OverviewResponse
// @Router /api/cloud/analytics/overview [get]
func (h *APIHandler) GetAnalyticsOverview(c *gin.Context) {
	ctx := c.Request.Context()

	overview, err := h.Repository.GetAnalyticsOverview(ctx, time.Now().UTC().Add(-overviewPeriod))
	if err != nil {
		h.internalError(c, err, "Ошибка получения статистики")
		return
	}

	ids := make([]uint, len(overview.Orgs))
	for i, o := range overview.Orgs {
		ids[i] = o.OrgID
	}
	names, err := h.Repository.OrganizationNames(ctx, ids)
	if err != nil {
		h.internalError(c, err, "Ошибка получения организаций")
		return
	}

	summaries := make([]dto.OrgSummary, len(overview.Orgs))
	for i, o := range overview.Orgs {
		summaries[i] = dto.OrgSummary{
			OrgID:           o.OrgID,
			OrgName:         names[o.OrgID],
			ActiveUsers:     o.ActiveUsers,
			ExperimentCount: o.ExperimentCount,
			LastActive:      o.LastActive.Format(dateLayout),
		}
	}

	c.JSON(http.StatusOK, dto.OverviewResponse{
		TotalActiveOrgs:    overview.ActiveOrgs,
		ActiveUsersLast30d: overview.ActiveUsers,
		TotalExperiments:   overview.TotalExperiments,
		OrgSummaries:       summaries,
	})
}

// GetAnalyticsTrends динамика по дням
// @Summary Динамика использования
// @Description Суммы активных пользователей и экспериментов по дням в интервале [start, end]
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param start query string true "Начало, YYYY-MM-DD"
// @Param end query string true "Конец, YYYY-MM-DD"
// @Success 200 {object} dto.TrendsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/cloud/analytics/trends [get]
func (h *APIHandler) GetAnalyticsTrends(c *gin.Context) {
	var q dto.TrendsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	start, err := time.Parse(dateLayout, q.Start)
	if err != nil {
		h.bindError(c, err)
		return
	}
	end, err := time.Parse(dateLayout, q.End)
	if err != nil {
		h.bindError(c, err)
		return
	}
	if end.Before(start) {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION", "Конец периода раньше начала")
		return
	}

	points, err := h.Repository.AnalyticsTrends(c.Request.Context(), start, end)
	if err != nil {
		h.internalError(c, err, "Ошибка получения статистики")
		return
	}

	data := make([]dto.TrendPoint, len(points))
	for i, p := range points {
		data[i] = dto.TrendPoint{
			ReportDate:      p.ReportDate.Format(dateLayout),
			ActiveUsers:     p.ActiveUsers,
			ExperimentCount: p.ExperimentCount,
		}
	}
	c.JSON(http.StatusOK, dto.TrendsResponse{Data: data})
}

// GetModuleUsage использование модулей
// @Summary Использование модулей
// @Description Суммы по всем загруженным отчётам, по убыванию
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ModuleUsageItem
// @Router /api/cloud/analytics/modules [get]
func (h *APIHandler) GetModuleUsage(c *gin.Context) {
	totals, err := h.Repository.ModuleUsageTotals(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "Ошибка получения статистики модулей")
		return
	}
	c.JSON(http.StatusOK, moduleUsageItems(totals))
}

func moduleUsageItems(totals map[string]int) []dto.ModuleUsageItem {
	items := make([]dto.ModuleUsageItem, 0, len(totals))
	for module, n := range totals {
		items = append(items, dto.ModuleUsageItem{ModuleID: module, TotalCount: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].TotalCount != items[j].TotalCount {
			return items[i].TotalCount > items[j].TotalCount
		}
		return items[i].ModuleID < items[j].ModuleID
	})
	return items
}

// GetDashboard счётчики админки
// @Summary Панель администратора
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /api/cloud/admin/dashboard [get]
func (h *APIHandler) GetDashboard(c *gin.Context) {
	d, err := h.Repository.GetDashboard(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "Ошибка получения статистики")
		return
	}

	c.JSON(http.StatusOK, dto.DashboardResponse{
		TotalOrganizations: d.Organizations,
		TotalLicenses:      d.Licenses,
		ActiveLicenses:     d.ActiveLicenses,
		PendingReports:     d.PendingReports,
	})
}
