package license

import (
	"fmt"
	"time"

	"licensecloud/internal/app/ds"
)

// State состояние лицензии, восстановленное из nullable-колонок записи.
// Возможны только три варианта: ActiveUnbound, ActiveBound и Revoked.
type State interface {
	isState()
}

// ActiveUnbound лицензия выпущена, но ещё ни разу не активирована.
type ActiveUnbound struct{}

// ActiveBound лицензия привязана к машине. ExpiresAt равен nil для бессрочных.
type ActiveBound struct {
	MachineID   string
	ActivatedAt time.Time
	ExpiresAt   *time.Time
}

// Revoked конечное состояние, выхода из него нет.
type Revoked struct{}

func (ActiveUnbound) isState() {}
func (ActiveBound) isState()   {}
func (Revoked) isState()       {}

// Expired истечение не хранится в базе, а вычисляется при проверке.
func (s ActiveBound) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// StateOf восстанавливает состояние из записи.
// Комбинации колонок, которым не соответствует ни одно состояние, дают ErrCorruptState.
func StateOf(l *ds.License) (State, error) {
	if !l.IsActive {
		return Revoked{}, nil
	}

	t := Type(l.LicenseType)
	if !t.Valid() {
		return nil, fmt.Errorf("%w: license %d has type %q", ErrCorruptState, l.ID, l.LicenseType)
	}

	if l.MachineID == nil {
		if l.ActivatedAt != nil || l.ExpiresAt != nil {
			return nil, fmt.Errorf("%w: license %d is unbound but has activation data", ErrCorruptState, l.ID)
		}
		return ActiveUnbound{}, nil
	}

	if l.ActivatedAt == nil {
		return nil, fmt.Errorf("%w: license %d is bound without activation time", ErrCorruptState, l.ID)
	}
	if (t == TypePermanent) != (l.ExpiresAt == nil) {
		return nil, fmt.Errorf("%w: license %d expiry does not match type %s", ErrCorruptState, l.ID, t)
	}

	return ActiveBound{
		MachineID:   *l.MachineID,
		ActivatedAt: *l.ActivatedAt,
		ExpiresAt:   l.ExpiresAt,
	}, nil
}

// Activate переход activate(machine_id). changed показывает, нужно ли
// сохранять новое состояние: повторная активация с той же машины ничего не меняет.
func Activate(s State, t Type, machineID string, now time.Time) (next State, changed bool, err error) {
	switch cur := s.(type) {
	case Revoked:
		return cur, false, ErrRevoked
	case ActiveBound:
		if cur.MachineID != machineID {
			return cur, false, ErrAlreadyBound
		}
		return cur, false, nil
	case ActiveUnbound:
		activatedAt := now.UTC()
		return ActiveBound{
			MachineID:   machineID,
			ActivatedAt: activatedAt,
			ExpiresAt:   ExpiresAt(t, activatedAt),
		}, true, nil
	default:
		return s, false, fmt.Errorf("%w: unknown state %T", ErrCorruptState, s)
	}
}

// Revoke переход revoke: из любого состояния в Revoked.
func Revoke(State) State {
	return Revoked{}
}

// Apply записывает состояние обратно в колонки записи.
// Отзыв снимает только флаг активности, данные привязки остаются.
func Apply(l *ds.License, s State) {
	switch st := s.(type) {
	case ActiveUnbound:
		l.IsActive = true
		l.MachineID = nil
		l.ActivatedAt = nil
		l.ExpiresAt = nil
	case ActiveBound:
		machineID := st.MachineID
		activatedAt := st.ActivatedAt
		l.IsActive = true
		l.MachineID = &machineID
		l.ActivatedAt = &activatedAt
		l.ExpiresAt = st.ExpiresAt
	case Revoked:
		l.IsActive = false
	}
}
