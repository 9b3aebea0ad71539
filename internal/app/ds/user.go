package ds

import "time"

// 3. Таблица пользователей. Логин уникален в пределах организации.
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"type:varchar(50);not null;index;uniqueIndex:uq_username_org"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Role         string    `gorm:"type:varchar(20);not null"` // super_admin, org_admin, teacher, student
	RealName     *string   `gorm:"type:varchar(50)"`
	OrgID        *uint     `gorm:"uniqueIndex:uq_username_org"`
	IsActive     bool      `gorm:"type:boolean;default:true;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	Organization *Organization `gorm:"foreignKey:OrgID"`
}

// 4. Refresh-токены: в базе только SHA-256 от токена
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	TokenHash string    `gorm:"type:varchar(64);not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
