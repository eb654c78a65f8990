// Пакет ratelimit - тарифные планы и лимиты запросов.
// policy.go - статическое отображение план → лимит.
// Неизвестный план всегда сводится к free, никогда к безлимиту.
package ratelimit

import "time"

// Plan - тарифный план подписки. Закрытое перечисление.
type Plan string

// Тарифные планы.
const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Policy - допустимое количество запросов в окне.
type Policy struct {
	// Requests - максимум запросов в окне (> 0).
	Requests int
	// Window - длительность окна (> 0).
	Window time.Duration
}

// WindowMs возвращает длительность окна в миллисекундах.
func (p Policy) WindowMs() int64 {
	return p.Window.Milliseconds()
}

var policies = map[Plan]Policy{
	PlanFree:       {Requests: 10, Window: time.Minute},
	PlanBasic:      {Requests: 30, Window: time.Minute},
	PlanPremium:    {Requests: 100, Window: time.Minute},
	PlanEnterprise: {Requests: 500, Window: time.Minute},
}

// DefaultPolicy возвращает лимит free-плана.
func DefaultPolicy() Policy {
	return policies[PlanFree]
}

// PolicyFor возвращает лимит для плана.
func PolicyFor(plan Plan) Policy {
	p, ok := policies[plan]
	if !ok {
		return DefaultPolicy()
	}
	return p
}

// AllPlans возвращает все тарифные планы.
func AllPlans() []Plan {
	return []Plan{PlanFree, PlanBasic, PlanPremium, PlanEnterprise}
}

// ParsePlan разбирает строку в Plan.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(s)
	if _, ok := policies[p]; !ok {
		return "", false
	}
	return p, true
}

// PlanOrDefault возвращает план из записи пользователя, free при отсутствии.
// Неизвестный план сохраняется: PolicyFor сведёт его к free.
func PlanOrDefault(s string) Plan {
	if s == "" {
		return PlanFree
	}
	return Plan(s)
}
