// limiter.go - счётчик запросов с фиксированным окном.
// Потребляет Policy, полученную от AccessService.GetUserRateLimit.
// Состояние - LRU ограниченного размера: давно неактивные ключи вытесняются.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Decision - результат проверки лимита для одного запроса.
type Decision struct {
	// Allowed - запрос укладывается в лимит.
	Allowed bool
	// Limit - лимит окна.
	Limit int
	// Remaining - сколько запросов ещё доступно в текущем окне.
	Remaining int
	// ResetAt - момент начала следующего окна.
	ResetAt time.Time
}

// window - состояние окна одного ключа.
type window struct {
	start time.Time
	count int
}

// Limiter - fixed-window лимитер по ключу (UID или IP).
// Безопасен для конкурентного использования.
type Limiter struct {
	mu     sync.Mutex
	states *lru.Cache[string, *window]
}

// NewLimiter создаёт лимитер, отслеживающий не более maxKeys ключей.
func NewLimiter(maxKeys int) (*Limiter, error) {
	cache, err := lru.New[string, *window](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("создание LRU лимитера: %w", err)
	}
	return &Limiter{states: cache}, nil
}

// Allow учитывает запрос ключа key в окне политики p.
// Политика с неположительными значениями заменяется на DefaultPolicy.
func (l *Limiter) Allow(key string, p Policy, now time.Time) Decision {
	if p.Requests <= 0 || p.Window <= 0 {
		p = DefaultPolicy()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.states.Get(key)
	if !ok || !now.Before(w.start.Add(p.Window)) {
		w = &window{start: now}
		l.states.Add(key, w)
	}

	d := Decision{
		Limit:   p.Requests,
		ResetAt: w.start.Add(p.Window),
	}

	if w.count >= p.Requests {
		return d
	}

	w.count++
	d.Allowed = true
	d.Remaining = p.Requests - w.count
	return d
}

// Len возвращает количество отслеживаемых ключей.
func (l *Limiter) Len() int {
	return l.states.Len()
}
