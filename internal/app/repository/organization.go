package repository

import (
	"context"

	"licensecloud/internal/app/ds"

	"gorm.io/gorm"
)

// OrganizationStats агрегаты для карточки организации.
type OrganizationStats struct {
	LicenseCount       int64
	ActiveLicenseCount int64
	UserCount          int64
}

func (r *Repository) ListOrganizations(ctx context.Context, search string, p Page) ([]ds.Organization, int64, error) {
	q := r.db.WithContext(ctx).Model(&ds.Organization{})
	if search != "" {
		q = q.Where("name ILIKE ?", "%"+search+"%")
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orgs := []ds.Organization{}
	err := q.Order("id DESC").Offset(p.Offset()).Limit(p.PageSize).Find(&orgs).Error
	if err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

func (r *Repository) GetOrganizationByID(ctx context.Context, id uint) (*ds.Organization, error) {
	var org ds.Organization
	err := r.db.WithContext(ctx).First(&org, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

func (r *Repository) CreateOrganization(ctx context.Context, org *ds.Organization) error {
	return translate(r.db.WithContext(ctx).Create(org).Error)
}

// UpdateOrganization меняет только переданные поля.
func (r *Repository) UpdateOrganization(ctx context.Context, id uint, fields map[string]interface{}) (*ds.Organization, error) {
	org, err := r.GetOrganizationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return org, nil
	}

	err = r.db.WithContext(ctx).Model(org).Updates(fields).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.GetOrganizationByID(ctx, id)
}

// DeleteOrganization удаляет организацию, если у неё нет активных лицензий.
func (r *Repository) DeleteOrganization(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org ds.Organization
		if err := tx.Clauses(lockingUpdate()).First(&org, id).Error; err != nil {
			return translate(err)
		}

		var active int64
		err := tx.Model(&ds.License{}).Where("org_id = ? AND is_active = ?", id, true).Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveLicenses
		}

		return translate(tx.Delete(&org).Error)
	})
}

func (r *Repository) GetOrganizationStats(ctx context.Context, id uint) (*OrganizationStats, error) {
	var stats OrganizationStats
	var err error

	stats.LicenseCount, stats.ActiveLicenseCount, err = r.CountLicenses(ctx, &id)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&ds.User{}).Where("org_id = ?", id).Count(&stats.UserCount).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// OrganizationNames id -> имя для списка организаций.
func (r *Repository) OrganizationNames(ctx context.Context, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var orgs []ds.Organization
	err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&orgs).Error
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		names[o.ID] = o.Name
	}
	return names, nil
}
