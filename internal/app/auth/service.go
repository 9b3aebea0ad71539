package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"licensecloud/internal/app/config"
	"licensecloud/internal/app/ds"
	"licensecloud/internal/app/repository"
	"licensecloud/internal/app/role"

	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"
)

const issuer = "licensecloud"

// UserStore то, что сервису нужно от репозитория.
type UserStore interface {
	GetActiveUserByUsername(ctx context.Context, username string) (*ds.User, error)
	GetUserByID(ctx context.Context, id uint) (*ds.User, error)
	SaveRefreshToken(ctx context.Context, token *ds.RefreshToken) error
	GetUserByRefreshTokenHash(ctx context.Context, hash string, now time.Time) (*ds.User, error)
	DeleteRefreshToken(ctx context.Context, hash string) error
}

// Session результат успешного входа.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *ds.User
}

type Service struct {
	store UserStore
	cfg   config.JWTConfig
	now   func() time.Time
}

func NewService(store UserStore, cfg config.JWTConfig) *Service {
	if cfg.SigningMethod == nil {
		cfg.SigningMethod = jwt.SigningMethodHS256
	}
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// Login проверяет пароль и выдаёт пару access/refresh.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.store.GetActiveUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		logrus.WithField("username", username).Info("login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	access, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	raw, hash, err := NewRefreshToken()
	if err != nil {
		return nil, err
	}
	err = s.store.SaveRefreshToken(ctx, &ds.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.cfg.RefreshExpiresIn).UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    s.cfg.ExpiresIn,
		User:         user,
	}, nil
}

// Refresh выдаёт новый access-токен по действующему refresh-токену.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	user, err := s.store.GetUserByRefreshTokenHash(ctx, HashRefreshToken(refreshToken), s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", ErrInvalidRefreshToken
	}
	return s.IssueAccessToken(user)
}

// Logout удаляет refresh-токен. Неизвестный токен не ошибка.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.store.DeleteRefreshToken(ctx, HashRefreshToken(refreshToken))
}

// Profile возвращает пользователя по id из токена.
func (s *Service) Profile(ctx context.Context, userID uint) (*ds.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

func (s *Service) IssueAccessToken(user *ds.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(s.cfg.SigningMethod, ds.JWTClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(s.cfg.ExpiresIn).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    issuer,
		},
		UserID:   user.ID,
		Username: user.Username,
		Role:     role.Role(user.Role),
		OrgID:    user.OrgID,
	})

	signed, err := token.SignedString([]byte(s.cfg.Token))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken проверяет подпись и срок access-токена.
func (s *Service) ParseAccessToken(tokenString string) (*ds.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ds.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != s.cfg.SigningMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return []byte(s.cfg.Token), nil
	})
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(*ds.JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
