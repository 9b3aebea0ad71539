package repository

import (
	"context"

	"licensecloud/internal/app/ds"

	"gorm.io/gorm"
)

func (r *Repository) ListUpdates(ctx context.Context, p Page) ([]ds.SoftwareUpdate, int64, error) {
	q := r.db.WithContext(ctx).Model(&ds.SoftwareUpdate{}).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	updates := []ds.SoftwareUpdate{}
	err := q.Order("id DESC").Offset(p.Offset()).Limit(p.PageSize).Find(&updates).Error
	if err != nil {
		return nil, 0, err
	}
	return updates, total, nil
}

// AllUpdates все версии, для выбора последней по semver.
func (r *Repository) AllUpdates(ctx context.Context) ([]ds.SoftwareUpdate, error) {
	updates := []ds.SoftwareUpdate{}
	err := r.db.WithContext(ctx).Order("id DESC").Find(&updates).Error
	return updates, err
}

func (r *Repository) GetUpdateByID(ctx context.Context, id uint) (*ds.SoftwareUpdate, error) {
	var upd ds.SoftwareUpdate
	err := r.db.WithContext(ctx).First(&upd, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &upd, nil
}

func (r *Repository) CreateUpdate(ctx context.Context, upd *ds.SoftwareUpdate) error {
	return translate(r.db.WithContext(ctx).Create(upd).Error)
}

// SetUpdatePackage сохраняет имя объекта в MinIO и размер пакета.
func (r *Repository) SetUpdatePackage(ctx context.Context, id uint, objectName string, size int64) error {
	res := r.db.WithContext(ctx).Model(&ds.SoftwareUpdate{}).Where("id = ?", id).
		Updates(map[string]interface{}{"package_name": objectName, "file_size": size})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
