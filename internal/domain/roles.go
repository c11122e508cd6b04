package domain

import "strings"

// UserRole описывает тариф пользователя.
type UserRole string

const (
	UserRoleFree UserRole = "free"
	UserRolePlus UserRole = "plus"
	UserRolePro  UserRole = "pro"
	// UserRoleGod — служебный аккаунт, освобождённый от списания
	// токенов. Номинальная стоимость публикации ему всё равно
	// показывается.
	UserRoleGod UserRole = "god"
)

// UserPlan описывает ограничения тарифа.
type UserPlan struct {
	Role          UserRole
	Name          string
	ScheduleLimit int
	Privileged    bool
}

var plans = map[UserRole]UserPlan{
	UserRoleFree: {
		Role:          UserRoleFree,
		Name:          "Free",
		ScheduleLimit: 2,
	},
	UserRolePlus: {
		Role:          UserRolePlus,
		Name:          "Plus",
		ScheduleLimit: 10,
	},
	UserRolePro: {
		Role:          UserRolePro,
		Name:          "Pro",
		ScheduleLimit: 30,
	},
	UserRoleGod: {
		Role:          UserRoleGod,
		Name:          "God",
		ScheduleLimit: 0,
		Privileged:    true,
	},
}

// PlanForRole возвращает тариф для роли.
func PlanForRole(role UserRole) UserPlan {
	if plan, ok := plans[UserRole(strings.ToLower(string(role)))]; ok {
		return plan
	}
	return plans[UserRoleFree]
}

// Plan возвращает тариф пользователя.
func (u User) Plan() UserPlan {
	return PlanForRole(u.Role)
}

// Privileged сообщает, освобождён ли пользователь от списания токенов.
// Признак вычисляется один раз на этапе загрузки попытки.
func (u User) Privileged() bool {
	return u.Plan().Privileged
}
