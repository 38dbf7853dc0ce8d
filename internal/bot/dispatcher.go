package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/Spok95/inventory-bot/internal/infra/metrics"
	"golang.org/x/sync/semaphore"
)

// dispatcher выполняет задачи одного чата строго по очереди,
// разные чаты параллельно, не больше workers одновременно.
type dispatcher struct {
	log *slog.Logger
	sem *semaphore.Weighted

	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

func newDispatcher(log *slog.Logger, workers int) *dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &dispatcher{
		log:    log,
		sem:    semaphore.NewWeighted(int64(workers)),
		queues: map[int64][]func(){},
	}
}

// Submit ставит задачу в очередь чата. Горутина-обработчик живёт, пока очередь не пуста.
func (d *dispatcher) Submit(chatID int64, task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, running := d.queues[chatID]
	d.queues[chatID] = append(q, task)
	if running {
		return
	}
	d.wg.Add(1)
	go d.drain(chatID)
}

func (d *dispatcher) drain(chatID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[chatID]
		if len(q) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		task := q[0]
		q[0] = nil
		d.queues[chatID] = q[1:]
		d.mu.Unlock()

		// Background: очередь дорабатывает и после отмены Run
		_ = d.sem.Acquire(context.Background(), 1)
		d.run(chatID, task)
		d.sem.Release(1)
	}
}

func (d *dispatcher) run(chatID int64, task func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Panics.Inc()
			d.log.Error("dispatcher task panicked",
				"chat_id", chatID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}

// Wait ждёт, пока опустеют все очереди.
func (d *dispatcher) Wait() { d.wg.Wait() }
