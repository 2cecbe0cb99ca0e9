package tasks

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"committee_backend/internal/models"
	"committee_backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

// fakeSender записывает отправленные уведомления.
type fakeSender struct {
	mu       sync.Mutex
	payloads []PushPayload
	fail     bool
}

func (f *fakeSender) Send(subscription models.PushSubscription, payload PushPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("сымитированный сбой отправки")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func setupNotifierTest(t *testing.T) *fakeSender {
	t.Helper()
	if os.Getenv("TEST_DB_HOST") == "" {
		_ = godotenv.Load("../../.env")
	}
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST не задан, пропускаем интеграционный тест")
	}

	storage.ConnectTestingDatabase()
	if err := storage.DB.AutoMigrate(
		&models.User{},
		&models.Committee{},
		&models.CommitteeMember{},
		&models.Slot{},
		&models.Attendance{},
		&models.MemberActivity{},
		&models.NotificationSettings{},
		&models.PushSubscription{},
	); err != nil {
		t.Fatal("Ошибка при миграции... ", err.Error())
	}
	storage.DB.Exec("TRUNCATE TABLE users, committees, committee_members, slots, attendances, member_activities, notification_settings, push_subscriptions RESTART IDENTITY CASCADE;")

	sender := &fakeSender{}
	Sender = sender
	sent = newSentSet()
	t.Cleanup(func() {
		Sender = nil
		sent = newSentSet()
		nowFunc = time.Now
	})
	return sender
}

func createNotifiedUser(t *testing.T, reminderMinutes int) *models.User {
	t.Helper()
	user := models.User{
		Name:         "Мария",
		Surname:      "Сидорова",
		Email:        fmt.Sprintf("maria_%d@example.com", time.Now().UnixNano()),
		PasswordHash: "hashed789",
	}
	assert.NoError(t, storage.DB.Create(&user).Error)

	settings := models.NotificationSettings{
		UserID:                   user.ID,
		PushEnabled:              true,
		ShiftRemindersEnabled:    true,
		ActivityRemindersEnabled: true,
		ReminderMinutes:          reminderMinutes,
	}
	assert.NoError(t, storage.DB.Create(&settings).Error)

	subscription := models.PushSubscription{
		UserID:   user.ID,
		Endpoint: fmt.Sprintf("https://push.example.com/%d", user.ID),
		P256dh:   "p256dh-key",
		Auth:     "auth-key",
	}
	assert.NoError(t, storage.DB.Create(&subscription).Error)
	return &user
}

func createShiftBooking(t *testing.T, user *models.User, date time.Time, shift models.Shift) *models.Attendance {
	t.Helper()
	committee := models.Committee{
		Name:           "Комиссия уведомлений",
		MorningStart:   "09:00",
		MorningEnd:     "13:00",
		AfternoonStart: "14:00",
		AfternoonEnd:   "18:00",
		MaxPerShift:    5,
	}
	assert.NoError(t, storage.DB.Create(&committee).Error)

	slot := models.Slot{
		CommitteeID: committee.ID,
		Date:        date,
		Shift:       shift,
		MaxCapacity: 5,
	}
	assert.NoError(t, storage.DB.Create(&slot).Error)

	attendance := models.Attendance{
		SlotID:       slot.ID,
		UserID:       user.ID,
		Status:       models.StatusConfirmed,
		RegisteredAt: time.Now(),
	}
	assert.NoError(t, storage.DB.Create(&attendance).Error)
	return &attendance
}

func TestReminderSweepShiftMatch(t *testing.T) {
	sender := setupNotifierTest(t)

	user := createNotifiedUser(t, 60)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	createShiftBooking(t, user, date, models.ShiftMorning)

	// Утренняя смена 09:00, лид-тайм 60 минут: совпадение в 08:00.
	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local) }
	RunReminderSweep()
	assert.Equal(t, 1, sender.count(), "Должно уйти ровно одно напоминание")

	// Повторный проход в том же окне — дедупликация.
	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 20, 0, time.Local) }
	RunReminderSweep()
	assert.Equal(t, 1, sender.count(), "Повторный проход не должен дублировать напоминание")
}

func TestReminderSweepOutsideWindow(t *testing.T) {
	sender := setupNotifierTest(t)

	user := createNotifiedUser(t, 60)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	createShiftBooking(t, user, date, models.ShiftMorning)

	// За два часа до начала совпадения нет.
	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 7, 0, 0, 0, time.Local) }
	RunReminderSweep()
	assert.Equal(t, 0, sender.count())

	// Смена уже началась — напоминание тоже не шлётся.
	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.Local) }
	RunReminderSweep()
	assert.Equal(t, 0, sender.count())
}

func TestReminderSweepActivityMatch(t *testing.T) {
	sender := setupNotifierTest(t)

	user := createNotifiedUser(t, 30)
	activity := models.MemberActivity{
		CommitteeID:  1,
		UserID:       user.ID,
		Title:        "Объезд участка",
		ActivityDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local),
		StartTime:    "16:00",
	}
	assert.NoError(t, storage.DB.Create(&activity).Error)

	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 15, 30, 0, 0, time.Local) }
	RunReminderSweep()
	assert.Equal(t, 1, sender.count())
	assert.Equal(t, "Напоминание о мероприятии", sender.payloads[0].Title)

	// Завершённое мероприятие не матчится.
	assert.NoError(t, storage.DB.Model(&activity).Update("is_completed", true).Error)
	sent = newSentSet()
	RunReminderSweep()
	assert.Equal(t, 1, sender.count())
}

func TestReminderSweepActivityDefaultTime(t *testing.T) {
	sender := setupNotifierTest(t)

	user := createNotifiedUser(t, 60)
	// Время начала не задано — матчер подставляет 09:00.
	activity := models.MemberActivity{
		CommitteeID:  1,
		UserID:       user.ID,
		Title:        "Приём документов",
		ActivityDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local),
	}
	assert.NoError(t, storage.DB.Create(&activity).Error)

	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local) }
	RunReminderSweep()
	assert.Equal(t, 1, sender.count())
}

func TestReminderSweepSendFailureDoesNotAbort(t *testing.T) {
	sender := setupNotifierTest(t)
	sender.fail = true

	userA := createNotifiedUser(t, 60)
	userB := createNotifiedUser(t, 60)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	createShiftBooking(t, userA, date, models.ShiftMorning)
	createShiftBooking(t, userB, date, models.ShiftMorning)

	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local) }
	// Сбой отправителя не должен ронять проход.
	assert.NotPanics(t, RunReminderSweep)

	// Оба события остались в дедуп-наборе: отправка была предпринята для каждого.
	assert.Equal(t, 2, sent.Len())
}

func TestReminderSweepCancelledNotMatched(t *testing.T) {
	sender := setupNotifierTest(t)

	user := createNotifiedUser(t, 60)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	attendance := createShiftBooking(t, user, date, models.ShiftMorning)

	now := time.Now()
	assert.NoError(t, storage.DB.Model(attendance).Updates(map[string]interface{}{
		"status":       models.StatusCancelled,
		"cancelled_at": &now,
	}).Error)

	nowFunc = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local) }
	RunReminderSweep()
	assert.Equal(t, 0, sender.count(), "По отменённым записям напоминания не шлются")
}
