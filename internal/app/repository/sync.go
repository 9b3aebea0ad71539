package repository

import (
	"context"
	"time"

	"licensecloud/internal/app/ds"
)

// Выборки для синхронизации клиента. Все отсортированы по времени изменения.

func (r *Repository) PublishedTasksSince(ctx context.Context, orgID uint, since time.Time) ([]ds.Task, error) {
	tasks := []ds.Task{}
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ? AND updated_at > ?", orgID, TaskPublished, since).
		Order("updated_at").
		Find(&tasks).Error
	return tasks, err
}

func (r *Repository) OrgUsersSince(ctx context.Context, orgID uint, since time.Time) ([]ds.User, error) {
	users := []ds.User{}
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND updated_at > ?", orgID, since).
		Order("updated_at").
		Find(&users).Error
	return users, err
}

// GradedReportsSince оценки студента. Студент должен принадлежать организации.
func (r *Repository) GradedReportsSince(ctx context.Context, orgID, studentID uint, since time.Time) ([]ds.Report, error) {
	reports := []ds.Report{}
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = reports.student_id").
		Where("users.org_id = ? AND reports.student_id = ?", orgID, studentID).
		Where("reports.status = ? AND reports.graded_at > ?", ReportGraded, since).
		Order("reports.graded_at").
		Find(&reports).Error
	return reports, err
}

func (r *Repository) CreateSyncLog(ctx context.Context, log *ds.SyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *Repository) CreateAnalytics(ctx context.Context, rec *ds.Analytics) error {
	return r.db.WithContext(ctx).Create(rec).Error
}
