package domain

import "testing"

func TestPlanForRoleUnknown(t *testing.T) {
	plan := PlanForRole("enterprise")
	if plan.Role != UserRoleFree {
		t.Fatalf("ожидали тариф Free для неизвестной роли, получили %s", plan.Role)
	}
}

func TestPlanForRoleCaseInsensitive(t *testing.T) {
	plan := PlanForRole("GOD")
	if !plan.Privileged {
		t.Fatalf("ожидали привилегированный тариф для роли GOD")
	}
}

func TestUserPrivileged(t *testing.T) {
	god := User{Role: UserRoleGod}
	if !god.Privileged() {
		t.Fatalf("god-аккаунт должен быть освобождён от списаний")
	}
	free := User{Role: UserRoleFree}
	if free.Privileged() {
		t.Fatalf("обычный аккаунт не должен быть привилегированным")
	}
}
