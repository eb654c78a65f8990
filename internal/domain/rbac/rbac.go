// Пакет rbac - ролевая модель Access Module.
// Роли образуют линейную решётку: {user} ⊂ {support} ⊂ {admin}.
// Проверка роли - это проверка возможностей, а не сравнение строк:
// admin проходит проверку уровня support и user.
package rbac

// Role - роль пользователя. Закрытое перечисление.
type Role string

// Роли в порядке возрастания привилегий.
const (
	RoleUser    Role = "user"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

// hierarchy - множество ролей, которые покрывает каждая роль.
// Отображение полное по трём ролям, каждое множество рефлексивно.
var hierarchy = map[Role][]Role{
	RoleAdmin:   {RoleAdmin, RoleSupport, RoleUser},
	RoleSupport: {RoleSupport, RoleUser},
	RoleUser:    {RoleUser},
}

// AllRoles возвращает все допустимые роли (от младшей к старшей).
func AllRoles() []Role {
	return []Role{RoleUser, RoleSupport, RoleAdmin}
}

// ParseRole разбирает строку в Role.
// Для неизвестной строки возвращает ("", false).
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if _, ok := hierarchy[r]; !ok {
		return "", false
	}
	return r, true
}

// RoleOrDefault возвращает роль из записи пользователя.
// Пустая (отсутствующая) роль - user.
// Неизвестная роль сохраняется как есть: Subsumes для неё всегда false.
func RoleOrDefault(s string) Role {
	if s == "" {
		return RoleUser
	}
	return Role(s)
}

// Hierarchy возвращает множество ролей, покрываемых ролью r.
// Для неизвестной роли - пустое множество.
func Hierarchy(r Role) []Role {
	roles := hierarchy[r]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Subsumes проверяет, покрывает ли роль have требуемую роль required.
func Subsumes(have, required Role) bool {
	for _, r := range hierarchy[have] {
		if r == required {
			return true
		}
	}
	return false
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := ParseRole(role)
	return ok
}

// String реализует fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
