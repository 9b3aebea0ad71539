package repository

import (
	"context"
	"time"

	"licensecloud/internal/app/ds"

	"gorm.io/gorm"
)

// Методы для пользователей и refresh-токенов

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*ds.User, error) {
	var user ds.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetActiveUserByUsername логин уникален внутри организации, берём самого раннего.
func (r *Repository) GetActiveUserByUsername(ctx context.Context, username string) (*ds.User, error) {
	var user ds.User
	err := r.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", username, true).
		Order("id").
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *Repository) ListUsers(ctx context.Context, orgID *uint, p Page) ([]ds.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&ds.User{})
	if orgID != nil {
		q = q.Where("org_id = ?", *orgID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []ds.User{}
	err := q.Order("id DESC").Offset(p.Offset()).Limit(p.PageSize).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *ds.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// ResetPassword меняет пароль и отзывает все refresh-токены пользователя.
func (r *Repository) ResetPassword(ctx context.Context, userID uint, passwordHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ds.User{}).Where("id = ?", userID).Update("password_hash", passwordHash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("user_id = ?", userID).Delete(&ds.RefreshToken{}).Error
	})
}

func (r *Repository) SaveRefreshToken(ctx context.Context, token *ds.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetUserByRefreshTokenHash пользователь по неистёкшему refresh-токену.
func (r *Repository) GetUserByRefreshTokenHash(ctx context.Context, hash string, now time.Time) (*ds.User, error) {
	var token ds.RefreshToken
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("token_hash = ? AND expires_at > ?", hash, now).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token.User, nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&ds.RefreshToken{}).Error
}

// DeleteExpiredRefreshTokens чистит просроченные токены, возвращает количество.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&ds.RefreshToken{})
	return res.RowsAffected, res.Error
}

// UpdateUser меняет переданные поля. При деактивации отзываются refresh-токены.
func (r *Repository) UpdateUser(ctx context.Context, id uint, fields map[string]interface{}) (*ds.User, error) {
	var user ds.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockingUpdate()).First(&user, id).Error; err != nil {
			return translate(err)
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(fields).Error; err != nil {
			return translate(err)
		}
		if active, ok := fields["is_active"].(bool); ok && !active {
			return tx.Where("user_id = ?", id).Delete(&ds.RefreshToken{}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
