package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentSetMarkIfNew(t *testing.T) {
	set := newSentSet()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)

	assert.True(t, set.MarkIfNew("1:shift:5:60", now), "Первый ключ должен регистрироваться")
	assert.False(t, set.MarkIfNew("1:shift:5:60", now.Add(time.Minute)), "Повторный ключ должен отклоняться")
	assert.True(t, set.MarkIfNew("1:shift:5:30", now), "Другой лид-тайм — другой ключ")
	assert.True(t, set.MarkIfNew("2:shift:5:60", now), "Другой пользователь — другой ключ")
	assert.Equal(t, 3, set.Len())
}

func TestSentSetPurge(t *testing.T) {
	set := newSentSet()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)

	set.MarkIfNew("old", now.Add(-2*time.Hour))
	set.MarkIfNew("fresh", now.Add(-10*time.Minute))

	removed := set.Purge(time.Hour, now)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, set.Len())

	// После очистки устаревший ключ можно зарегистрировать заново.
	assert.True(t, set.MarkIfNew("old", now))
	assert.False(t, set.MarkIfNew("fresh", now))
}
