package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/repository"
)

// fakeStore хранилище в памяти. Методы, которые тест не переопределил,
// паникуют через встроенный nil-интерфейс.
type fakeStore struct {
	Store

	orgs    map[uint]*ds.Organization
	users   map[uint]*ds.User
	tasks   map[uint]*ds.Task
	reports map[uint]*ds.Report
	trends  []repository.TrendPoint

	deleteOrgErr error
	nextID       uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:    map[uint]*ds.Organization{},
		users:   map[uint]*ds.User{},
		tasks:   map[uint]*ds.Task{},
		reports: map[uint]*ds.Report{},
		nextID:  100,
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) GetOrganizationByID(_ context.Context, id uint) (*ds.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return org, nil
}

func (f *fakeStore) DeleteOrganization(_ context.Context, id uint) error {
	if f.deleteOrgErr != nil {
		return f.deleteOrgErr
	}
	if _, ok := f.orgs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.orgs, id)
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id uint) (*ds.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id uint, fields map[string]interface{}) (*ds.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if v, ok := fields["real_name"].(string); ok {
		u.RealName = &v
	}
	if v, ok := fields["role"].(string); ok {
		u.Role = v
	}
	if v, ok := fields["is_active"].(bool); ok {
		u.IsActive = v
	}
	return u, nil
}

func (f *fakeStore) ListTasks(_ context.Context, filter repository.TaskFilter, _ repository.Page) ([]ds.Task, int64, error) {
	out := []ds.Task{}
	for _, t := range f.tasks {
		if filter.OrgID != nil && (t.OrgID == nil || *t.OrgID != *filter.OrgID) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeStore) GetTaskByID(_ context.Context, id uint) (*ds.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) CreateTask(_ context.Context, task *ds.Task) error {
	task.ID = f.id()
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateTask(_ context.Context, id uint, fields map[string]interface{}) (*ds.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if v, ok := fields["title"].(string); ok {
		t.Title = v
	}
	if v, ok := fields["max_score"].(int); ok {
		t.MaxScore = v
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) PublishTask(_ context.Context, id uint) (*ds.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.Status != repository.TaskDraft {
		return nil, repository.ErrTaskNotDraft
	}
	t.Status = repository.TaskPublished
	cp := *t
	return &cp, nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id uint) error {
	t, ok := f.tasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status == repository.TaskPublished {
		for _, r := range f.reports {
			if r.TaskID != nil && *r.TaskID == id {
				return repository.ErrTaskHasReports
			}
		}
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) ListReports(_ context.Context, filter repository.ReportFilter, _ repository.Page) ([]ds.Report, int64, error) {
	out := []ds.Report{}
	for _, r := range f.reports {
		if filter.OrgID != nil {
			t, ok := f.tasks[*r.TaskID]
			if !ok || t.OrgID == nil || *t.OrgID != *filter.OrgID {
				continue
			}
		}
		if filter.TaskID != nil && *r.TaskID != *filter.TaskID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) GetReportByID(_ context.Context, id uint) (*ds.Report, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) CreateReport(_ context.Context, report *ds.Report) error {
	report.ID = f.id()
	report.SubmittedAt = time.Now().UTC()
	cp := *report
	f.reports[report.ID] = &cp
	return nil
}

func (f *fakeStore) GradeReport(_ context.Context, id uint, score int, feedback *string, graderID uint, gradedAt time.Time) (*ds.Report, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.Score = &score
	r.Feedback = feedback
	r.GraderID = &graderID
	r.Status = repository.ReportGraded
	r.GradedAt = &gradedAt
	cp := *r
	return &cp, nil
}

func (f *fakeStore) AnalyticsTrends(_ context.Context, start, end time.Time) ([]repository.TrendPoint, error) {
	out := []repository.TrendPoint{}
	for _, p := range f.trends {
		if !p.ReportDate.Before(start) && !p.ReportDate.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeStorage объекты MinIO в памяти.
type fakeStorage struct {
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, r io.Reader, _ int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.objects[objectName] = buf.Bytes()
	return nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, objectName string) error {
	delete(s.objects, objectName)
	return nil
}

func (s *fakeStorage) GetFileURL(_ context.Context, objectName string) (string, error) {
	if _, ok := s.objects[objectName]; !ok {
		return "", errors.New("no such object")
	}
	return "https://files.test/" + objectName, nil
}

func (s *fakeStorage) FileExists(_ context.Context, objectName string) (bool, error) {
	_, ok := s.objects[objectName]
	return ok, nil
}
