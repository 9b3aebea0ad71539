package license

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"licensecloud/internal/app/ds"

	"github.com/sirupsen/logrus"
)

const maxKeyAttempts = 5

// ActivationResult ответ на успешную активацию.
type ActivationResult struct {
	ActivationToken string     `json:"activation_token"`
	ExpiresAt       *time.Time `json:"expires_at"`
	LicenseType     Type       `json:"license_type"`
}

// VerificationResult результат проверки токена. Неактивный токен это
// обычный результат с IsActive=false и тегом в Error, а не ошибка.
type VerificationResult struct {
	IsActive    bool       `json:"is_active"`
	LicenseType Type       `json:"license_type,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MachineID   string     `json:"machine_id,omitempty"`
	Error       Code       `json:"error,omitempty"`

	Claims *Claims `json:"-"`
}

func inactive(code Code) *VerificationResult {
	return &VerificationResult{IsActive: false, Error: code}
}

// Service жизненный цикл лицензий: выпуск, активация, проверка, отзыв.
type Service struct {
	store Store
	codec *Codec
	now   func() time.Time
	log   *logrus.Entry
}

func NewService(store Store, codec *Codec) *Service {
	return &Service{
		store: store,
		codec: codec,
		now:   time.Now,
		log:   logrus.WithField("component", "license"),
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create выпускает новую непривязанную лицензию. При совпадении ключа
// ключ генерируется заново, не более maxKeyAttempts раз.
func (s *Service) Create(ctx context.Context, orgID uint, t Type) (*ds.License, error) {
	if !t.Valid() {
		return nil, ErrInvalidType
	}

	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		key, err := GenerateKey()
		if err != nil {
			return nil, err
		}

		l := &ds.License{
			LicenseKey:  key,
			OrgID:       orgID,
			LicenseType: string(t),
			IsActive:    true,
		}
		err = s.store.CreateLicense(ctx, l)
		if errors.Is(err, ErrKeyCollision) {
			s.log.WithField("attempt", attempt).Warn("license key collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create license: %w", err)
		}

		s.log.WithFields(logrus.Fields{
			"license_id": l.ID,
			"org_id":     orgID,
			"type":       t,
		}).Info("license created")
		return l, nil
	}

	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrKeyCollision, maxKeyAttempts)
}

// Activate привязывает лицензию к машине и выдаёт токен активации.
// Проверка и запись выполняются под блокировкой строки в хранилище,
// поэтому из двух конкурентных активаций с разных машин проходит одна.
func (s *Service) Activate(ctx context.Context, key, machineID string) (*ActivationResult, error) {
	machineID = strings.TrimSpace(machineID)
	if machineID == "" {
		return nil, ErrInvalidMachineID
	}
	key = NormalizeKey(key)
	now := s.now()

	row, err := s.store.UpdateLicenseByKey(ctx, key, func(l *ds.License) (bool, error) {
		st, err := StateOf(l)
		if err != nil {
			return false, err
		}
		next, changed, err := Activate(st, Type(l.LicenseType), machineID, now)
		if err != nil {
			return false, err
		}
		if changed {
			Apply(l, next)
		}
		return changed, nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrLicenseNotFound
	}
	if err != nil {
		if CodeOf(err) != "" {
			s.log.WithFields(logrus.Fields{"key": key, "code": CodeOf(err)}).Info("activation rejected")
			return nil, err
		}
		return nil, fmt.Errorf("failed to activate license: %w", err)
	}

	claims := ClaimsFor(row)
	token, err := s.codec.Encode(claims)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"license_id": row.ID,
		"machine_id": machineID,
	}).Info("license activated")

	return &ActivationResult{
		ActivationToken: token,
		ExpiresAt:       claims.ExpiresAt,
		LicenseType:     claims.LicenseType,
	}, nil
}

// Verify проверяет токен активации. Данные ответа берутся из claims токена,
// из базы читается только флаг активности. Ошибка возвращается лишь
// при сбое хранилища.
func (s *Service) Verify(ctx context.Context, token string) (*VerificationResult, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return inactive(CodeInvalidToken), nil
	}

	if claims.ExpiresAt != nil && s.now().After(*claims.ExpiresAt) {
		return inactive(CodeLicenseExpired), nil
	}

	row, err := s.store.GetLicenseByID(ctx, claims.LicenseID)
	if errors.Is(err, ErrNotFound) {
		return inactive(CodeLicenseRevoked), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load license %d: %w", claims.LicenseID, err)
	}
	if !row.IsActive {
		return inactive(CodeLicenseRevoked), nil
	}

	return &VerificationResult{
		IsActive:    true,
		LicenseType: claims.LicenseType,
		ExpiresAt:   claims.ExpiresAt,
		MachineID:   claims.MachineID,
		Claims:      claims,
	}, nil
}

// Revoke отзывает лицензию. Повторный отзыв ничего не меняет.
func (s *Service) Revoke(ctx context.Context, id uint) (*ds.License, error) {
	row, err := s.store.UpdateLicenseByID(ctx, id, func(l *ds.License) (bool, error) {
		st, err := StateOf(l)
		if err != nil {
			s.log.WithError(err).Warn("revoking license with inconsistent state")
		}
		if _, ok := st.(Revoked); ok {
			return false, nil
		}
		Apply(l, Revoke(st))
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to revoke license %d: %w", id, err)
	}

	s.log.WithField("license_id", id).Info("license revoked")
	return row, nil
}

// Get возвращает лицензию по id.
func (s *Service) Get(ctx context.Context, id uint) (*ds.License, error) {
	return s.store.GetLicenseByID(ctx, id)
}

// List возвращает страницу лицензий и общее количество.
func (s *Service) List(ctx context.Context, f ListFilter) ([]ds.License, int64, error) {
	return s.store.ListLicenses(ctx, f)
}
