package ds

import "time"

// 2. Таблица лицензий. Состояние задаётся тройкой IsActive / MachineID / ActivatedAt,
// разбор в явное состояние делает пакет license.
type License struct {
	ID          uint       `gorm:"primaryKey"`
	LicenseKey  string     `gorm:"type:varchar(19);uniqueIndex;not null"`
	OrgID       uint       `gorm:"not null;index"`
	LicenseType string     `gorm:"type:varchar(20);not null"` // trial, education, permanent
	MachineID   *string    `gorm:"type:varchar(64)"`          // Пусто до первой активации
	IsActive    bool       `gorm:"type:boolean;default:true;not null"`
	ActivatedAt *time.Time `gorm:"default:null"`
	ExpiresAt   *time.Time `gorm:"default:null"` // Пусто для permanent
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`

	Organization Organization `gorm:"foreignKey:OrgID"`
}
