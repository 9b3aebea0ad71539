package license

import (
	"context"
	"sync"
	"time"

	"licensecloud/internal/app/ds"
)

// MutateFunc меняет запись под блокировкой. changed=false означает,
// что запись сохранять не нужно.
type MutateFunc func(l *ds.License) (changed bool, err error)

// ListFilter параметры выборки для админского списка.
type ListFilter struct {
	OrgID  *uint
	Limit  int
	Offset int
}

// Store хранилище лицензий. Update* обязаны сериализовать конкурентные
// изменения одной записи: fn вызывается с эксклюзивным доступом к строке.
type Store interface {
	CreateLicense(ctx context.Context, l *ds.License) error
	GetLicenseByID(ctx context.Context, id uint) (*ds.License, error)
	ListLicenses(ctx context.Context, f ListFilter) ([]ds.License, int64, error)
	UpdateLicenseByKey(ctx context.Context, key string, fn MutateFunc) (*ds.License, error)
	UpdateLicenseByID(ctx context.Context, id uint, fn MutateFunc) (*ds.License, error)
}

// MemoryStore хранилище в памяти для тестов и локального запуска.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*ds.License
	byKey  map[string]uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		byID:   make(map[uint]*ds.License),
		byKey:  make(map[string]uint),
	}
}

func (m *MemoryStore) CreateLicense(_ context.Context, l *ds.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byKey[l.LicenseKey]; ok {
		return ErrKeyCollision
	}

	now := time.Now().UTC()
	l.ID = m.nextID
	l.CreatedAt = now
	l.UpdatedAt = now
	m.nextID++

	row := cloneLicense(l)
	m.byID[row.ID] = row
	m.byKey[row.LicenseKey] = row.ID
	return nil
}

func (m *MemoryStore) GetLicenseByID(_ context.Context, id uint) (*ds.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLicense(row), nil
}

func (m *MemoryStore) ListLicenses(_ context.Context, f ListFilter) ([]ds.License, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []ds.License
	// по убыванию id, как и в базе
	for id := m.nextID - 1; id > 0; id-- {
		row, ok := m.byID[id]
		if !ok {
			continue
		}
		if f.OrgID != nil && row.OrgID != *f.OrgID {
			continue
		}
		all = append(all, *cloneLicense(row))
	}

	total := int64(len(all))
	if f.Offset >= len(all) {
		return []ds.License{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (m *MemoryStore) UpdateLicenseByKey(_ context.Context, key string, fn MutateFunc) (*ds.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	return m.update(id, fn)
}

func (m *MemoryStore) UpdateLicenseByID(_ context.Context, id uint, fn MutateFunc) (*ds.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return nil, ErrNotFound
	}
	return m.update(id, fn)
}

// update вызывается под m.mu.
func (m *MemoryStore) update(id uint, fn MutateFunc) (*ds.License, error) {
	row := cloneLicense(m.byID[id])
	changed, err := fn(row)
	if err != nil {
		return nil, err
	}
	if changed {
		row.UpdatedAt = time.Now().UTC()
		m.byID[id] = cloneLicense(row)
	}
	return row, nil
}

func cloneLicense(l *ds.License) *ds.License {
	c := *l
	if l.MachineID != nil {
		v := *l.MachineID
		c.MachineID = &v
	}
	if l.ActivatedAt != nil {
		v := *l.ActivatedAt
		c.ActivatedAt = &v
	}
	if l.ExpiresAt != nil {
		v := *l.ExpiresAt
		c.ExpiresAt = &v
	}
	return &c
}
