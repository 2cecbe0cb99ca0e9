package models

import (
	"time"

	"gorm.io/gorm"
)

// Shift — смена внутри рабочего дня комиссии.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftFullDay   Shift = "full_day" // создаётся только администратором, напрямую не бронируется
)

// Slot — один бронируемый слот: (комиссия, дата, смена).
// Слоты никогда не удаляются, только блокируются или меняют вместимость.
type Slot struct {
	gorm.Model
	CommitteeID uint      `gorm:"index:idx_slot_key,unique;not null"`
	Committee   Committee `gorm:"foreignKey:CommitteeID"`
	Date        time.Time `gorm:"type:date;index:idx_slot_key,unique;not null"` // Календарная дата без времени
	Shift       Shift     `gorm:"index:idx_slot_key,unique;not null"`
	MaxCapacity int       `gorm:"not null"`      // Лимит подтверждённых записей
	IsBlocked   bool      `gorm:"default:false"` // Административная блокировка записи
	Notes       string
}
