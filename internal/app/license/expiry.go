package license

import (
	"strings"
	"time"
)

// Type класс лицензии.
type Type string

const (
	TypeTrial     Type = "trial"
	TypeEducation Type = "education"
	TypePermanent Type = "permanent"
)

const (
	trialPeriod     = 30 * 24 * time.Hour
	educationPeriod = 180 * 24 * time.Hour
)

// Types все известные классы в порядке отображения.
var Types = []Type{TypeTrial, TypeEducation, TypePermanent}

func (t Type) Valid() bool {
	switch t {
	case TypeTrial, TypeEducation, TypePermanent:
		return true
	}
	return false
}

// ParseType разбирает класс лицензии из пользовательского ввода.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ExpiresAt считает момент истечения по классу и моменту первой активации.
// Для бессрочных лицензий возвращает nil.
func ExpiresAt(t Type, activatedAt time.Time) *time.Time {
	var exp time.Time
	switch t {
	case TypeTrial:
		exp = activatedAt.Add(trialPeriod)
	case TypeEducation:
		exp = activatedAt.Add(educationPeriod)
	default:
		return nil
	}
	return &exp
}
