// Package ordernumber генерирует человекочитаемые номера заказов вида ORD-<unix ms>-<0..999>.
package ordernumber

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Prefix: префикс всех номеров заказов.
const Prefix = "ORD"

// maxSuffix: верхняя граница (не включительно) случайного суффикса.
const maxSuffix = 1000

// Generator выдаёт номера заказов. Уникальность не гарантируется:
// коллизии ловит уникальный индекс хранилища, движок повторяет генерацию.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand *rand.Rand
}

// Option настраивает генератор.
type Option func(*Generator)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithSource подменяет источник случайности.
func WithSource(src rand.Source) Option {
	return func(g *Generator) {
		if src != nil {
			g.rand = rand.New(src)
		}
	}
}

// New создаёт генератор с системными часами и случайным зерном.
func New(opts ...Option) *Generator {
	g := &Generator{
		now:  time.Now,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next возвращает очередной номер. Безопасен для конкурентного вызова.
func (g *Generator) Next() string {
	g.mu.Lock()
	suffix := g.rand.Intn(maxSuffix)
	g.mu.Unlock()
	return Format(g.now(), suffix)
}

// Format собирает номер из времени и суффикса.
func Format(at time.Time, suffix int) string {
	return fmt.Sprintf("%s-%d-%d", Prefix, at.UnixMilli(), suffix)
}
