package repository

import (
	"errors"
	"fmt"

	"licensecloud/internal/app/ds"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrInUse запись нельзя удалить, на неё ссылаются другие таблицы
	ErrInUse = errors.New("record is referenced by other records")
	// ErrActiveLicenses у организации есть действующие лицензии
	ErrActiveLicenses = errors.New("organization has active licenses")
)

// Models все таблицы сервиса в порядке миграции.
var Models = []interface{}{
	&ds.Organization{},
	&ds.User{},
	&ds.RefreshToken{},
	&ds.License{},
	&ds.Task{},
	&ds.Report{},
	&ds.SyncLog{},
	&ds.Analytics{},
	&ds.SoftwareUpdate{},
}

type Repository struct {
	db *gorm.DB
}

// Open подключается к Postgres. Ошибки драйвера переводятся в gorm.Err*.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

func New(dsn string) (*Repository, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}

	// Автоматическая миграция всех таблиц
	err = Migrate(db)
	if err != nil {
		return nil, err
	}

	return NewWithDB(db), nil
}

func NewWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate приводит ошибки gorm к ошибкам репозитория.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInUse
	}
	return err
}

// Page параметры постраничной выдачи.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Pages количество страниц, минимум одна.
func (p Page) Pages(total int64) int {
	if total == 0 || p.PageSize <= 0 {
		return 1
	}
	return int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
}
