package models

import (
	"time"

	"gorm.io/gorm"
)

// MemberActivity — запланированное мероприятие участника комиссии.
// Ядро читает ActivityDate/StartTime для расчёта окон напоминаний.
type MemberActivity struct {
	gorm.Model
	CommitteeID  uint      `gorm:"index;not null"`
	UserID       uint      `gorm:"index;not null"`
	User         User      `gorm:"foreignKey:UserID"`
	Title        string    `gorm:"not null"`
	ActivityDate time.Time `gorm:"type:date;index;not null"` // Календарная дата без времени
	StartTime    string    // Время начала "HH:MM"; пустая строка — по умолчанию 09:00
	IsCompleted  bool      `gorm:"default:false"`
}
