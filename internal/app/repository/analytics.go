package repository

import (
	"context"
	"time"

	"licensecloud/internal/app/ds"
)

// OrgActivity сводка по одной организации.
type OrgActivity struct {
	OrgID           uint
	ActiveUsers     int64
	ExperimentCount int64
	LastActive      time.Time
}

// AnalyticsOverview сводка за период.
type AnalyticsOverview struct {
	ActiveOrgs       int64
	ActiveUsers      int64
	TotalExperiments int64
	Orgs             []OrgActivity
}

// TrendPoint суммы за один день.
type TrendPoint struct {
	ReportDate      time.Time
	ActiveUsers     int64
	ExperimentCount int64
}

// Dashboard счётчики для главной страницы админки.
type Dashboard struct {
	Organizations  int64
	Licenses       int64
	ActiveLicenses int64
	PendingReports int64
}

func (r *Repository) GetAnalyticsOverview(ctx context.Context, since time.Time) (*AnalyticsOverview, error) {
	var out AnalyticsOverview
	db := r.db.WithContext(ctx)

	err := db.Model(&ds.Analytics{}).
		Where("report_date >= ?", since).
		Distinct("org_id").
		Count(&out.ActiveOrgs).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&ds.Analytics{}).
		Where("report_date >= ?", since).
		Select("COALESCE(SUM(active_user_count), 0)").
		Scan(&out.ActiveUsers).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&ds.Analytics{}).
		Select("COALESCE(SUM(experiment_count), 0)").
		Scan(&out.TotalExperiments).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&ds.Analytics{}).
		Select("org_id, SUM(active_user_count) AS active_users, SUM(experiment_count) AS experiment_count, MAX(report_date) AS last_active").
		Where("org_id IS NOT NULL").
		Group("org_id").
		Order("experiment_count DESC").
		Scan(&out.Orgs).Error
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// AnalyticsTrends суммы по дням в интервале [start, end], по возрастанию даты.
func (r *Repository) AnalyticsTrends(ctx context.Context, start, end time.Time) ([]TrendPoint, error) {
	points := []TrendPoint{}
	err := r.db.WithContext(ctx).Model(&ds.Analytics{}).
		Select("report_date, SUM(active_user_count) AS active_users, SUM(experiment_count) AS experiment_count").
		Where("report_date >= ? AND report_date <= ?", start, end).
		Group("report_date").
		Order("report_date").
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

// ModuleUsageTotals суммарное использование модулей по всем отчётам.
func (r *Repository) ModuleUsageTotals(ctx context.Context) (map[string]int, error) {
	var records []ds.Analytics
	err := r.db.WithContext(ctx).Select("module_usage").Where("module_usage IS NOT NULL").Find(&records).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	for _, rec := range records {
		for module, n := range rec.ModuleUsage {
			totals[module] += n
		}
	}
	return totals, nil
}

func (r *Repository) GetDashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	var err error
	db := r.db.WithContext(ctx)

	if err = db.Model(&ds.Organization{}).Count(&d.Organizations).Error; err != nil {
		return nil, err
	}
	d.Licenses, d.ActiveLicenses, err = r.CountLicenses(ctx, nil)
	if err != nil {
		return nil, err
	}
	err = db.Model(&ds.Report{}).Where("status = ?", ReportSubmitted).Count(&d.PendingReports).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}
