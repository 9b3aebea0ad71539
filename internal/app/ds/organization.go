package ds

import "time"

// 1. Таблица организаций (учебных заведений)
type Organization struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"type:varchar(100);not null"`
	ContactName  *string   `gorm:"type:varchar(50)"`
	ContactPhone *string   `gorm:"type:varchar(20)"`
	Address      *string   `gorm:"type:varchar(200)"`
	LicenseQuota int       `gorm:"type:int;default:10;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
