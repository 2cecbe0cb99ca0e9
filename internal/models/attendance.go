package models

import (
	"time"

	"gorm.io/gorm"
)

// AttendanceStatus — закрытый набор статусов записи на смену.
type AttendanceStatus string

const (
	StatusConfirmed AttendanceStatus = "confirmed"
	StatusCancelled AttendanceStatus = "cancelled"
	StatusAttended  AttendanceStatus = "attended"
	StatusAbsent    AttendanceStatus = "absent" // проставляется только администратором
)

// Attendance — запись пользователя на слот. На пару (слот, пользователь)
// существует не более одной строки: отменённая запись реактивируется,
// а не дублируется.
type Attendance struct {
	gorm.Model
	SlotID       uint             `gorm:"index:idx_attendance_key,unique;not null"`
	Slot         Slot             `gorm:"foreignKey:SlotID"`
	UserID       uint             `gorm:"index:idx_attendance_key,unique;not null"`
	User         User             `gorm:"foreignKey:UserID"`
	Status       AttendanceStatus `gorm:"index;not null"`
	RegisteredAt time.Time        `gorm:"not null"`
	CancelledAt  *time.Time // nil, пока запись не отменена
}
