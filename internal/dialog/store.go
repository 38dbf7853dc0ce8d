package dialog

import (
	"sync"
	"time"
)

type entry struct {
	mu      sync.Mutex
	sess    Session
	evicted bool
}

// Store держит сессии в памяти: по одной на чат, каждая под своей блокировкой.
type Store struct {
	mu    sync.Mutex
	items map[int64]*entry
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{items: make(map[int64]*entry), now: time.Now}
}

// Acquire блокирует сессию чата и возвращает её вместе с release.
// Пока блокировка удерживается, другие вызовы для того же чата ждут.
func (s *Store) Acquire(chatID int64) (*Session, func()) {
	for {
		s.mu.Lock()
		e, ok := s.items[chatID]
		if !ok {
			e = &entry{sess: Session{ChatID: chatID, State: StateMainMenu}}
			s.items[chatID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.evicted {
			// сессию выселили, пока ждали блокировку; берём свежую
			e.mu.Unlock()
			continue
		}
		return &e.sess, func() {
			e.sess.UpdatedAt = s.now()
			e.mu.Unlock()
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Evict удаляет сессии, не тронутые дольше idle. Занятые сессии пропускаются.
func (s *Store) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.items {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess.UpdatedAt.Before(cutoff) {
			e.evicted = true
			delete(s.items, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}
