package repository

import (
	"context"
	"errors"
	"time"

	"licensecloud/internal/app/ds"

	"gorm.io/gorm"
)

const (
	TaskDraft       = "draft"
	TaskPublished   = "published"
	ReportSubmitted = "submitted"
	ReportGraded    = "graded"
)

var (
	// ErrTaskNotDraft опубликовать можно только черновик
	ErrTaskNotDraft = errors.New("only draft tasks can be published")
	// ErrTaskHasReports по опубликованному заданию уже сдавали отчёты
	ErrTaskHasReports = errors.New("published task has submitted reports")
)

var reportGradeColumns = []string{"score", "feedback", "grader_id", "status", "graded_at"}

// TaskFilter пустые поля не фильтруют.
type TaskFilter struct {
	OrgID  *uint
	Status string
}

type ReportFilter struct {
	OrgID     *uint
	TaskID    *uint
	StudentID *uint
	Status    string
}

func (r *Repository) ListTasks(ctx context.Context, f TaskFilter, p Page) ([]ds.Task, int64, error) {
	q := r.db.WithContext(ctx).Model(&ds.Task{})
	if f.OrgID != nil {
		q = q.Where("org_id = ?", *f.OrgID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tasks := []ds.Task{}
	err := q.Order("id DESC").Offset(p.Offset()).Limit(p.PageSize).Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *Repository) GetTaskByID(ctx context.Context, id uint) (*ds.Task, error) {
	var task ds.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *Repository) CreateTask(ctx context.Context, task *ds.Task) error {
	if task.Status == "" {
		task.Status = TaskDraft
	}
	return translate(r.db.WithContext(ctx).Create(task).Error)
}

// UpdateTask меняет только переданные поля.
func (r *Repository) UpdateTask(ctx context.Context, id uint, fields map[string]interface{}) (*ds.Task, error) {
	task, err := r.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return task, nil
	}

	if err := r.db.WithContext(ctx).Model(task).Updates(fields).Error; err != nil {
		return nil, translate(err)
	}
	return r.GetTaskByID(ctx, id)
}

// PublishTask переводит черновик в published.
func (r *Repository) PublishTask(ctx context.Context, id uint) (*ds.Task, error) {
	var task ds.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockingUpdate()).First(&task, id).Error; err != nil {
			return translate(err)
		}
		if task.Status != TaskDraft {
			return ErrTaskNotDraft
		}
		task.Status = TaskPublished
		return tx.Model(&task).Select("status").Updates(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask удаляет задание. Опубликованное задание с отчётами не удаляется.
func (r *Repository) DeleteTask(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task ds.Task
		if err := tx.Clauses(lockingUpdate()).First(&task, id).Error; err != nil {
			return translate(err)
		}

		if task.Status == TaskPublished {
			var reports int64
			err := tx.Model(&ds.Report{}).Where("task_id = ?", id).Count(&reports).Error
			if err != nil {
				return err
			}
			if reports > 0 {
				return ErrTaskHasReports
			}
		}

		return translate(tx.Delete(&task).Error)
	})
}

// ListReports OrgID ограничивает отчёты заданиями организации.
func (r *Repository) ListReports(ctx context.Context, f ReportFilter, p Page) ([]ds.Report, int64, error) {
	q := r.db.WithContext(ctx).Model(&ds.Report{})
	if f.OrgID != nil {
		q = q.Joins("JOIN tasks ON tasks.id = reports.task_id").Where("tasks.org_id = ?", *f.OrgID)
	}
	if f.TaskID != nil {
		q = q.Where("reports.task_id = ?", *f.TaskID)
	}
	if f.StudentID != nil {
		q = q.Where("reports.student_id = ?", *f.StudentID)
	}
	if f.Status != "" {
		q = q.Where("reports.status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	reports := []ds.Report{}
	err := q.Select("reports.*").Order("reports.id DESC").Offset(p.Offset()).Limit(p.PageSize).Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *Repository) GetReportByID(ctx context.Context, id uint) (*ds.Report, error) {
	var report ds.Report
	err := r.db.WithContext(ctx).First(&report, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (r *Repository) CreateReport(ctx context.Context, report *ds.Report) error {
	if report.Status == "" {
		report.Status = ReportSubmitted
	}
	return translate(r.db.WithContext(ctx).Create(report).Error)
}

// GradeReport выставляет оценку. Повторная оценка перезаписывает прежнюю.
func (r *Repository) GradeReport(ctx context.Context, id uint, score int, feedback *string, graderID uint, gradedAt time.Time) (*ds.Report, error) {
	var report ds.Report
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockingUpdate()).First(&report, id).Error; err != nil {
			return translate(err)
		}
		report.Score = &score
		report.Feedback = feedback
		report.GraderID = &graderID
		report.Status = ReportGraded
		report.GradedAt = &gradedAt
		return tx.Model(&report).Select(reportGradeColumns).Updates(&report).Error
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}
