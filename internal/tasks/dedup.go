package tasks

import (
	"sync"
	"time"
)

// sentSet — процесс-локальный набор уже отправленных напоминаний.
// Ключ: (пользователь, тип события, id события, лид-тайм). Набор не
// персистентен: при рестарте процесса напоминания, чьи окна ещё
// актуальны, могут уйти повторно. При нескольких экземплярах матчера
// дедупликация не работает — предполагается один экземпляр.
type sentSet struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func newSentSet() *sentSet {
	return &sentSet{sent: make(map[string]time.Time)}
}

// MarkIfNew регистрирует ключ и возвращает true, если он ещё не встречался.
func (s *sentSet) MarkIfNew(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sent[key]; ok {
		return false
	}
	s.sent[key] = now
	return true
}

// Purge удаляет записи старше maxAge и возвращает число удалённых.
func (s *sentSet) Purge(maxAge time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sentAt := range s.sent {
		if now.Sub(sentAt) > maxAge {
			delete(s.sent, key)
			removed++
		}
	}
	return removed
}

// Len возвращает текущий размер набора.
func (s *sentSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
