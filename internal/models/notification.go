package models

import (
	"gorm.io/gorm"
)

// NotificationSettings — настройки напоминаний пользователя.
type NotificationSettings struct {
	gorm.Model
	UserID                   uint  `gorm:"uniqueIndex;not null"`
	PushEnabled              bool  `gorm:"default:false"`
	ShiftRemindersEnabled    bool  `gorm:"default:true"`
	ActivityRemindersEnabled bool  `gorm:"default:true"`
	ReminderMinutes          int   `gorm:"default:60"` // За сколько минут до события напоминать
	TelegramChatID           int64 // 0 — телеграм-канал не подключён
}

// PushSubscription — подписка браузера на push-уведомления.
// Само проксирование в push-сервис выполняет внешний шлюз.
type PushSubscription struct {
	gorm.Model
	UserID   uint   `gorm:"index;not null"`
	Endpoint string `gorm:"uniqueIndex;not null"`
	P256dh   string `gorm:"not null"`
	Auth     string `gorm:"not null"`
}
