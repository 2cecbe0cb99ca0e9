package booking

import (
	"errors"
	"time"

	"committee_backend/internal/models"
	"committee_backend/internal/storage"

	"gorm.io/gorm"
)

// ErrDuplicateSlot — слот (комиссия, дата, смена) уже существует.
// На пути ленивого создания эта ситуация гасится ретраем и наружу
// не выходит; здесь она отдаётся администратору как есть.
var ErrDuplicateSlot = errors.New("слот на эту дату и смену уже существует")

// GetSlot возвращает слот по ключу (комиссия, дата, смена).
func GetSlot(committeeID uint, date time.Time, shift models.Shift) (*models.Slot, error) {
	var slot models.Slot
	err := storage.DB.
		Where("committee_id = ? AND date = ? AND shift = ?", committeeID, DateString(TruncateToDate(date)), shift).
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// CreateSlot явно создаёт слот (административный путь).
func CreateSlot(committeeID uint, date time.Time, shift models.Shift, maxCapacity int, isBlocked bool, notes string) (*models.Slot, error) {
	if shift != models.ShiftMorning && shift != models.ShiftAfternoon && shift != models.ShiftFullDay {
		return nil, ErrInvalidShift
	}
	if maxCapacity < 0 {
		return nil, errors.New("лимит мест не может быть отрицательным")
	}
	slot := models.Slot{
		CommitteeID: committeeID,
		Date:        TruncateToDate(date),
		Shift:       shift,
		MaxCapacity: maxCapacity,
		IsBlocked:   isBlocked,
		Notes:       notes,
	}
	if err := storage.DB.Create(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}
	return &slot, nil
}

// SlotUpdate — частичное обновление слота. nil-поля не трогаются.
type SlotUpdate struct {
	MaxCapacity *int
	IsBlocked   *bool
	Notes       *string
}

// UpdateSlot меняет вместимость, блокировку или заметки слота.
// Слоты никогда не удаляются.
func UpdateSlot(slotID uint, update SlotUpdate) (*models.Slot, error) {
	var slot models.Slot
	if err := storage.DB.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	fields := map[string]interface{}{}
	if update.MaxCapacity != nil {
		if *update.MaxCapacity < 0 {
			return nil, errors.New("лимит мест не может быть отрицательным")
		}
		fields["max_capacity"] = *update.MaxCapacity
	}
	if update.IsBlocked != nil {
		fields["is_blocked"] = *update.IsBlocked
	}
	if update.Notes != nil {
		fields["notes"] = *update.Notes
	}
	if len(fields) == 0 {
		return &slot, nil
	}

	if err := storage.DB.Model(&slot).Updates(fields).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}
