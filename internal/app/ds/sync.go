package ds

import "time"

// 7. Журнал синхронизаций клиента
type SyncLog struct {
	ID          uint      `gorm:"primaryKey"`
	LicenseID   *uint     `gorm:"index"`
	SyncType    string    `gorm:"type:varchar(50)"` // tasks, users, grades, analytics
	Direction   string    `gorm:"type:varchar(10)"` // upload, download
	RecordCount int       `gorm:"type:int;default:0;not null"`
	Status      string    `gorm:"type:varchar(20)"` // success, error
	SyncedAt    time.Time `gorm:"autoCreateTime;not null"`
}

// 8. Статистика использования, которую присылает клиент (только добавление)
type Analytics struct {
	ID              uint           `gorm:"primaryKey"`
	LicenseID       *uint          `gorm:"index"`
	OrgID           *uint          `gorm:"index"`
	ReportDate      time.Time      `gorm:"type:date;not null;index"`
	ActiveUserCount int            `gorm:"type:int;default:0;not null"`
	ExperimentCount int            `gorm:"type:int;default:0;not null"`
	ModuleUsage     map[string]int `gorm:"type:jsonb;serializer:json"`
	CreatedAt       time.Time      `gorm:"not null"`
}
