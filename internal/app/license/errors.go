package license

import "errors"

// Code машинно-читаемый тег ошибки, который уходит клиенту как есть.
type Code string

const (
	CodeLicenseNotFound     Code = "LICENSE_NOT_FOUND"
	CodeLicenseRevoked      Code = "LICENSE_REVOKED"
	CodeLicenseAlreadyBound Code = "LICENSE_ALREADY_BOUND"
	CodeLicenseExpired      Code = "LICENSE_EXPIRED"
	CodeInvalidToken        Code = "INVALID_TOKEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidLicenseType  Code = "INVALID_LICENSE_TYPE"
	CodeInvalidMachineID    Code = "INVALID_MACHINE_ID"
)

// Error типизированная ошибка домена лицензий.
// Две ошибки равны для errors.Is, если совпадают коды.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrLicenseNotFound  = &Error{Code: CodeLicenseNotFound, Message: "license key not found"}
	ErrRevoked          = &Error{Code: CodeLicenseRevoked, Message: "license has been revoked"}
	ErrAlreadyBound     = &Error{Code: CodeLicenseAlreadyBound, Message: "license is bound to another machine"}
	ErrExpired          = &Error{Code: CodeLicenseExpired, Message: "license has expired"}
	ErrInvalidToken     = &Error{Code: CodeInvalidToken, Message: "invalid activation token"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "license not found"}
	ErrInvalidType      = &Error{Code: CodeInvalidLicenseType, Message: "unknown license type"}
	ErrInvalidMachineID = &Error{Code: CodeInvalidMachineID, Message: "machine id must not be empty"}

	// ErrOrganizationNotFound выпуск лицензии для несуществующей организации
	ErrOrganizationNotFound = &Error{Code: CodeNotFound, Message: "organization not found"}
)

// Внутренние ошибки, клиенту не показываются.
var (
	ErrKeyCollision = errors.New("license key already exists")
	ErrCorruptState = errors.New("license row is in an inconsistent state")
)

// CodeOf возвращает код доменной ошибки или пустую строку.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
