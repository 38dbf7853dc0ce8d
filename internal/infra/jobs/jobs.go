package jobs

import (
	"log/slog"
	"time"

	"github.com/Spok95/inventory-bot/internal/infra/metrics"
	"github.com/robfig/cron/v3"
)

// SessionSweeper то, что умеет выселять простаивающие сессии.
type SessionSweeper interface {
	Evict(idle time.Duration) int
	Len() int
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New регистрирует периодическую очистку сессий по расписанию spec
// (например "@every 10m"). Запуск через Start у возвращённого планировщика.
func New(log *slog.Logger, loc *time.Location, spec string, sessions SessionSweeper, idle time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc), cron.WithParser(parser))
	if _, err := c.AddFunc(spec, func() { Sweep(log, sessions, idle) }); err != nil {
		return nil, err
	}
	return c, nil
}

// Sweep один проход очистки.
func Sweep(log *slog.Logger, sessions SessionSweeper, idle time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("session sweep panicked", "panic", r)
		}
	}()
	n := sessions.Evict(idle)
	left := sessions.Len()
	metrics.Sessions.Set(float64(left))
	if n > 0 {
		log.Info("idle sessions evicted", "evicted", n, "left", left)
	}
}
