package ds

import "time"

// 5. Задания преподавателей
type Task struct {
	ID          uint       `gorm:"primaryKey"`
	Title       string     `gorm:"type:varchar(200);not null"`
	Description string     `gorm:"type:text"`
	ModuleID    *string    `gorm:"type:varchar(50)"`
	TeacherID   *uint      `gorm:"index"`
	OrgID       *uint      `gorm:"index"`
	Deadline    *time.Time `gorm:"default:null"`
	MaxScore    int        `gorm:"type:int;default:100;not null"`
	Status      string     `gorm:"type:varchar(20);default:'draft';not null"` // draft, published
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null;index"`
}

// 6. Отчёты студентов по заданиям
type Report struct {
	ID               uint       `gorm:"primaryKey"`
	TaskID           *uint      `gorm:"index"`
	StudentID        *uint      `gorm:"index"`
	FilePath         *string    `gorm:"type:varchar(500)"`
	OriginalFilename *string    `gorm:"type:varchar(255)"`
	FileSize         *int64     `gorm:"type:bigint"`
	Score            *int       `gorm:"type:int"` // 0-100
	Feedback         *string    `gorm:"type:text"`
	GraderID         *uint      `gorm:"default:null"`
	Status           string     `gorm:"type:varchar(20);default:'submitted';not null"` // submitted, graded
	SubmittedAt      time.Time  `gorm:"autoCreateTime;not null"`
	GradedAt         *time.Time `gorm:"default:null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}
