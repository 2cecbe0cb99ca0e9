package booking

import (
	"errors"
	"time"

	"committee_backend/internal/models"
	"committee_backend/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nowFunc подменяется в тестах окна подтверждения.
var nowFunc = time.Now

// IsMember сообщает, состоит ли пользователь в комиссии (активное членство).
func IsMember(userID, committeeID uint) bool {
	var member models.CommitteeMember
	err := storage.DB.
		Where("user_id = ? AND committee_id = ? AND is_active = true", userID, committeeID).
		First(&member).Error
	return err == nil
}

// IsAdmin сообщает, является ли пользователь администратором комиссии.
func IsAdmin(userID, committeeID uint) bool {
	var member models.CommitteeMember
	err := storage.DB.
		Where("user_id = ? AND committee_id = ? AND role = ? AND is_active = true",
			userID, committeeID, models.RoleAdmin).
		First(&member).Error
	return err == nil
}

// BookAttendance записывает пользователя на смену (комиссия, дата, смена).
// Слот создаётся лениво при первой записи. Проверка лимита и вставка
// выполняются в одной транзакции под блокировкой строки слота, чтобы
// конкурирующие записи не превысили вместимость.
func BookAttendance(userID, committeeID uint, date time.Time, shift models.Shift) (*models.Attendance, error) {
	if shift != models.ShiftMorning && shift != models.ShiftAfternoon {
		return nil, ErrInvalidShift
	}

	var committee models.Committee
	if err := storage.DB.First(&committee, committeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommitteeNotFound
		}
		return nil, err
	}

	if !IsMember(userID, committeeID) {
		return nil, ErrNotAMember
	}

	day := TruncateToDate(date)
	slot, err := resolveSlot(&committee, day, shift)
	if err != nil {
		return nil, err
	}
	if slot.IsBlocked {
		return nil, ErrSlotBlocked
	}

	var attendance *models.Attendance
	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		// Блокируем строку слота: конкурирующие бронирования того же слота
		// сериализуются здесь, и подсчёт лимита становится атомарным
		// относительно вставки.
		var locked models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, slot.ID).Error; err != nil {
			return err
		}
		if locked.IsBlocked {
			return ErrSlotBlocked
		}

		var confirmed int64
		if err := tx.Model(&models.Attendance{}).
			Where("slot_id = ? AND status = ?", locked.ID, models.StatusConfirmed).
			Count(&confirmed).Error; err != nil {
			return err
		}
		if confirmed >= int64(locked.MaxCapacity) {
			return ErrCapacityExceeded
		}

		var existing models.Attendance
		findErr := tx.Where("slot_id = ? AND user_id = ?", locked.ID, userID).First(&existing).Error
		if findErr == nil {
			if existing.Status == models.StatusCancelled {
				// Реактивируем отменённую запись вместо вставки новой строки:
				// на пару (слот, пользователь) держим одну историческую строку.
				existing.Status = models.StatusConfirmed
				existing.RegisteredAt = nowFunc()
				existing.CancelledAt = nil
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				attendance = &existing
				return nil
			}
			// confirmed, attended и absent — запись уже есть
			return ErrAlreadyRegistered
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		entry := models.Attendance{
			SlotID:       locked.ID,
			UserID:       userID,
			Status:       models.StatusConfirmed,
			RegisteredAt: nowFunc(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		attendance = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attendance, nil
}

// resolveSlot находит слот или лениво создаёт его с лимитом комиссии.
// Два конкурирующих первых бронирования могут оба не найти слот и оба
// попытаться создать его: уникальный индекс отбросит второго, и мы
// один раз повторяем поиск вместо возврата сырой ошибки ограничения.
func resolveSlot(committee *models.Committee, day time.Time, shift models.Shift) (*models.Slot, error) {
	var slot models.Slot
	err := storage.DB.
		Where("committee_id = ? AND date = ? AND shift = ?", committee.ID, DateString(day), shift).
		First(&slot).Error
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	slot = models.Slot{
		CommitteeID: committee.ID,
		Date:        day,
		Shift:       shift,
		MaxCapacity: committee.MaxPerShift,
	}
	if createErr := storage.DB.Create(&slot).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			var again models.Slot
			if err := storage.DB.
				Where("committee_id = ? AND date = ? AND shift = ?", committee.ID, DateString(day), shift).
				First(&again).Error; err != nil {
				return nil, err
			}
			return &again, nil
		}
		return nil, createErr
	}
	return &slot, nil
}

// CancelAttendance отменяет подтверждённую запись её владельца.
// Строка не удаляется: история сохраняется, а повторная запись
// реактивирует её.
func CancelAttendance(attendanceID, userID uint) (*models.Attendance, error) {
	var attendance models.Attendance
	if err := storage.DB.First(&attendance, attendanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if attendance.UserID != userID {
		return nil, ErrNotOwner
	}
	if attendance.Status != models.StatusConfirmed {
		return nil, ErrInvalidState
	}

	now := nowFunc()
	attendance.Status = models.StatusCancelled
	attendance.CancelledAt = &now
	if err := storage.DB.Save(&attendance).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

// ConfirmAttendance переводит запись confirmed -> attended. Разрешено
// только владельцу, только в день смены и только внутри окна смены
// по конфигурации комиссии (границы включительно). Переход необратим.
func ConfirmAttendance(attendanceID, userID uint) (*models.Attendance, error) {
	var attendance models.Attendance
	if err := storage.DB.First(&attendance, attendanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if attendance.UserID != userID {
		return nil, ErrNotOwner
	}
	if attendance.Status != models.StatusConfirmed {
		return nil, ErrInvalidState
	}

	var slot models.Slot
	if err := storage.DB.First(&slot, attendance.SlotID).Error; err != nil {
		return nil, err
	}
	var committee models.Committee
	if err := storage.DB.First(&committee, slot.CommitteeID).Error; err != nil {
		return nil, err
	}

	now := nowFunc()
	if !sameDate(slot.Date, now) {
		return nil, ErrWrongDay
	}

	start, end, err := shiftWindow(&committee, slot.Shift)
	if err != nil {
		return nil, err
	}
	nowMinutes := now.Hour()*60 + now.Minute()
	if nowMinutes < start || nowMinutes > end {
		return nil, ErrOutsideWindow
	}

	attendance.Status = models.StatusAttended
	if err := storage.DB.Save(&attendance).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

// shiftWindow возвращает границы смены в минутах с начала суток.
// full_day занимает весь рабочий день: от начала утренней до конца дневной.
func shiftWindow(committee *models.Committee, shift models.Shift) (int, int, error) {
	var startStr, endStr string
	switch shift {
	case models.ShiftMorning:
		startStr, endStr = committee.MorningStart, committee.MorningEnd
	case models.ShiftAfternoon:
		startStr, endStr = committee.AfternoonStart, committee.AfternoonEnd
	case models.ShiftFullDay:
		startStr, endStr = committee.MorningStart, committee.AfternoonEnd
	default:
		return 0, 0, ErrInvalidShift
	}
	start, err := ParseHHMM(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseHHMM(endStr)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
