package auth

// Error ошибка аутентификации с машинно-читаемым кодом.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInvalidCredentials  = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	ErrInvalidRefreshToken = &Error{Code: "INVALID_REFRESH_TOKEN", Message: "refresh token is invalid or expired"}
	ErrInvalidAccessToken  = &Error{Code: "INVALID_ACCESS_TOKEN", Message: "access token is invalid or expired"}
	ErrWeakPassword        = &Error{Code: "WEAK_PASSWORD", Message: "password must be at least 6 characters"}
)
