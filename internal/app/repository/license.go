package repository

import (
	"context"
	"errors"
	"time"

	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/license"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Репозиторий реализует license.Store.
var _ license.Store = (*Repository)(nil)

// Колонки, которые меняют переходы состояния лицензии.
var licenseStateColumns = []string{"machine_id", "is_active", "activated_at", "expires_at", "updated_at"}

func (r *Repository) CreateLicense(ctx context.Context, l *ds.License) error {
	err := r.db.WithContext(ctx).Create(l).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return license.ErrKeyCollision
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		// организацию удалили между проверкой и вставкой
		return license.ErrOrganizationNotFound
	}
	return err
}

func (r *Repository) GetLicenseByID(ctx context.Context, id uint) (*ds.License, error) {
	var l ds.License
	err := r.db.WithContext(ctx).First(&l, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, license.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) ListLicenses(ctx context.Context, f license.ListFilter) ([]ds.License, int64, error) {
	q := r.db.WithContext(ctx).Model(&ds.License{})
	if f.OrgID != nil {
		q = q.Where("org_id = ?", *f.OrgID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	licenses := []ds.License{}
	q = q.Order("id DESC").Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&licenses).Error; err != nil {
		return nil, 0, err
	}
	return licenses, total, nil
}

func (r *Repository) UpdateLicenseByKey(ctx context.Context, key string, fn license.MutateFunc) (*ds.License, error) {
	return r.updateLicense(ctx, "license_key", key, fn)
}

func (r *Repository) UpdateLicenseByID(ctx context.Context, id uint, fn license.MutateFunc) (*ds.License, error) {
	return r.updateLicense(ctx, "id", id, fn)
}

func lockingUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// lockedLicenseQuery SELECT ... FOR UPDATE по одной колонке.
// column всегда константа из этого файла.
func lockedLicenseQuery(tx *gorm.DB, column string, value interface{}) *gorm.DB {
	return tx.Clauses(lockingUpdate()).Where(column+" = ?", value)
}

// updateLicense читает строку под блокировкой, применяет fn и сохраняет
// колонки состояния в той же транзакции. Конкурентный вызов ждёт коммита
// и видит уже изменённую строку.
func (r *Repository) updateLicense(ctx context.Context, column string, value interface{}, fn license.MutateFunc) (*ds.License, error) {
	var out *ds.License

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ds.License
		err := lockedLicenseQuery(tx, column, value).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return license.ErrNotFound
		}
		if err != nil {
			return err
		}

		changed, err := fn(&row)
		if err != nil {
			return err
		}

		if changed {
			row.UpdatedAt = time.Now().UTC()
			err = tx.Model(&row).Select(licenseStateColumns).Updates(&row).Error
			if err != nil {
				return err
			}
		}

		out = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountLicenses всего лицензий и активных из них. orgID=nil по всем организациям.
func (r *Repository) CountLicenses(ctx context.Context, orgID *uint) (total, active int64, err error) {
	q := r.db.WithContext(ctx).Model(&ds.License{})
	if orgID != nil {
		q = q.Where("org_id = ?", *orgID)
	}
	q = q.Session(&gorm.Session{})
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = q.Where("is_active = ?", true).Count(&active).Error; err != nil {
		return 0, 0, err
	}
	return total, active, nil
}
