package tasks

import (
	"fmt"
	"time"

	"committee_backend/internal/booking"
	"committee_backend/internal/logger"
	"committee_backend/internal/models"
	"committee_backend/internal/storage"

	"github.com/google/uuid"
)

// nowFunc подменяется в тестах матчера.
var nowFunc = time.Now

// matchTolerance — допуск совпадения времени события с целевым моментом.
// Вместе с минутным циклом даёт разрешение напоминаний ±30 секунд.
const matchTolerance = 30 * time.Second

var sent = newSentSet()

// RunReminderSweep — один проход матчера напоминаний: для каждого
// пользователя с включёнными уведомлениями ищет смены и мероприятия,
// начинающиеся через его лид-тайм, и шлёт по одному уведомлению на событие.
func RunReminderSweep() {
	now := nowFunc()

	var allSettings []models.NotificationSettings
	if err := storage.DB.Where("push_enabled = true").Find(&allSettings).Error; err != nil {
		logger.Log.Error("Ошибка загрузки настроек уведомлений: ", err)
		return
	}
	if len(allSettings) == 0 {
		return
	}

	// Конфигурации комиссий запрашиваются один раз на проход.
	committees := make(map[uint]*models.Committee)

	for _, settings := range allSettings {
		sweepUser(settings, now, committees)
	}
}

func sweepUser(settings models.NotificationSettings, now time.Time, committees map[uint]*models.Committee) {
	target := now.Add(time.Duration(settings.ReminderMinutes) * time.Minute)
	windowStart := target.Add(-matchTolerance)
	windowEnd := target.Add(matchTolerance)

	if settings.ShiftRemindersEnabled {
		var attendances []models.Attendance
		if err := storage.DB.
			Preload("Slot").
			Where("user_id = ? AND status = ?", settings.UserID, models.StatusConfirmed).
			Find(&attendances).Error; err != nil {
			logger.Log.Error("Ошибка загрузки записей пользователя ", settings.UserID, ": ", err)
			return
		}
		for _, attendance := range attendances {
			committee := committeeByID(committees, attendance.Slot.CommitteeID)
			if committee == nil {
				continue
			}
			startAt := shiftStart(committee, &attendance.Slot)
			if startAt.Before(windowStart) || startAt.After(windowEnd) {
				continue
			}
			key := dedupKey(settings.UserID, "shift", attendance.ID, settings.ReminderMinutes)
			if !sent.MarkIfNew(key, now) {
				continue
			}
			deliver(settings, PushPayload{
				NotificationID: uuid.NewString(),
				Title:          "Напоминание о смене",
				Body: fmt.Sprintf("%s %s начинается в %s",
					shiftName(attendance.Slot.Shift),
					attendance.Slot.Date.Format("02.01.2006"),
					startAt.Format("15:04")),
				Data: map[string]interface{}{
					"event_type":    "shift",
					"attendance_id": attendance.ID,
					"slot_id":       attendance.SlotID,
				},
			})
		}
	}

	if settings.ActivityRemindersEnabled {
		var activities []models.MemberActivity
		if err := storage.DB.
			Where("user_id = ? AND is_completed = false", settings.UserID).
			Find(&activities).Error; err != nil {
			logger.Log.Error("Ошибка загрузки мероприятий пользователя ", settings.UserID, ": ", err)
			return
		}
		for _, activity := range activities {
			startAt := booking.CombineDateTime(activity.ActivityDate, activity.StartTime, "09:00")
			if startAt.Before(windowStart) || startAt.After(windowEnd) {
				continue
			}
			key := dedupKey(settings.UserID, "activity", activity.ID, settings.ReminderMinutes)
			if !sent.MarkIfNew(key, now) {
				continue
			}
			deliver(settings, PushPayload{
				NotificationID: uuid.NewString(),
				Title:          "Напоминание о мероприятии",
				Body: fmt.Sprintf("«%s» начинается в %s",
					activity.Title, startAt.Format("15:04")),
				Data: map[string]interface{}{
					"event_type":  "activity",
					"activity_id": activity.ID,
				},
			})
		}
	}
}

// deliver рассылает уведомление по всем каналам пользователя.
// Сбой одного канала не мешает остальным.
func deliver(settings models.NotificationSettings, payload PushPayload) {
	var subscriptions []models.PushSubscription
	if err := storage.DB.Where("user_id = ?", settings.UserID).Find(&subscriptions).Error; err != nil {
		logger.Log.Error("Ошибка загрузки push-подписок пользователя ", settings.UserID, ": ", err)
	}
	for _, subscription := range subscriptions {
		if Sender == nil {
			break
		}
		if err := Sender.Send(subscription, payload); err != nil {
			logger.Log.Warn("Ошибка отправки push пользователю ", settings.UserID, ": ", err)
		}
	}

	if settings.TelegramChatID != 0 {
		if err := sendTelegram(settings.TelegramChatID, payload); err != nil {
			logger.Log.Warn("Ошибка отправки в телеграм пользователю ", settings.UserID, ": ", err)
		}
	}
}

// PurgeSentReminders удаляет из дедуп-набора записи старше часа.
func PurgeSentReminders() {
	removed := sent.Purge(time.Hour, nowFunc())
	if removed > 0 {
		logger.Log.Infof("Очистка дедуп-набора напоминаний: удалено %d записей", removed)
	}
}

func committeeByID(cache map[uint]*models.Committee, id uint) *models.Committee {
	if committee, ok := cache[id]; ok {
		return committee
	}
	var committee models.Committee
	if err := storage.DB.First(&committee, id).Error; err != nil {
		logger.Log.Error("Ошибка загрузки комиссии ", id, ": ", err)
		cache[id] = nil
		return nil
	}
	cache[id] = &committee
	return &committee
}

// shiftStart возвращает момент начала смены слота. В схеме дата и время
// начала хранятся раздельно (date + "HH:MM"), поэтому склеиваем вручную.
func shiftStart(committee *models.Committee, slot *models.Slot) time.Time {
	switch slot.Shift {
	case models.ShiftAfternoon:
		return booking.CombineDateTime(slot.Date, committee.AfternoonStart, "14:00")
	default:
		return booking.CombineDateTime(slot.Date, committee.MorningStart, "09:00")
	}
}

func shiftName(shift models.Shift) string {
	switch shift {
	case models.ShiftMorning:
		return "Утренняя смена"
	case models.ShiftAfternoon:
		return "Дневная смена"
	default:
		return "Смена на весь день"
	}
}

func dedupKey(userID uint, eventType string, eventID uint, reminderMinutes int) string {
	return fmt.Sprintf("%d:%s:%d:%d", userID, eventType, eventID, reminderMinutes)
}
