package role

// Role уровень доступа пользователя, лежит в access-токене.
type Role string

const (
	SuperAdmin Role = "super_admin"
	OrgAdmin   Role = "org_admin"
	Teacher    Role = "teacher"
	Student    Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case SuperAdmin, OrgAdmin, Teacher, Student:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
