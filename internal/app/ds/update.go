package ds

import "time"

// 9. Версии клиентского ПО
type SoftwareUpdate struct {
	ID           uint      `gorm:"primaryKey"`
	Version      string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	ReleaseDate  time.Time `gorm:"type:date;not null"`
	ReleaseNotes string    `gorm:"type:text"`
	PackageName  *string   `gorm:"type:varchar(255)"` // Имя объекта в MinIO
	FileSize     *int64    `gorm:"type:bigint"`
	IsMandatory  bool      `gorm:"type:boolean;default:false;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
