package models

import (
	"gorm.io/gorm"
)

// Роли участника комиссии.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type Committee struct {
	gorm.Model
	Name           string `gorm:"not null"`       // Название комиссии
	District       string `gorm:"index"`          // Округ/район
	MorningStart   string `gorm:"default:'09:00'"` // Начало утренней смены, формат HH:MM
	MorningEnd     string `gorm:"default:'13:00'"` // Конец утренней смены
	AfternoonStart string `gorm:"default:'14:00'"` // Начало дневной смены
	AfternoonEnd   string `gorm:"default:'18:00'"` // Конец дневной смены
	MaxPerShift    int    `gorm:"default:5"`       // Лимит мест для лениво создаваемых слотов
	WorkingDays    string `gorm:"default:'1,2,3,4,5'"` // Рабочие дни недели, например "1,2,3,4,5"
}

type CommitteeMember struct {
	gorm.Model
	CommitteeID uint      `gorm:"index:idx_member_key,unique;not null"`
	Committee   Committee `gorm:"foreignKey:CommitteeID"`
	UserID      uint      `gorm:"index:idx_member_key,unique;not null"`
	User        User      `gorm:"foreignKey:UserID"`
	Role        string    `gorm:"default:'member';not null"` // member или admin
	IsActive    bool      `gorm:"default:true"`            // false — участник исключён/вышел
}
