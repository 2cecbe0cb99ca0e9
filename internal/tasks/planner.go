package tasks

import (
	"os"

	"committee_backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler() *cron.Cron {
	if Sender == nil {
		Sender = NewGatewaySender()
	}

	c := cron.New(cron.WithSeconds())

	// Проход матчера напоминаний раз в минуту.
	sweepSpec := os.Getenv("REMINDER_SWEEP_SPEC")
	if sweepSpec == "" {
		sweepSpec = "0 * * * * *"
	}
	if _, err := c.AddFunc(sweepSpec, RunReminderSweep); err != nil {
		logger.Log.Error("Ошибка запуска cron-задачи RunReminderSweep: ", err)
	}

	// Очистка дедуп-набора напоминаний каждый час.
	if _, err := c.AddFunc("0 0 * * * *", PurgeSentReminders); err != nil {
		logger.Log.Error("Ошибка запуска cron-задачи PurgeSentReminders: ", err)
	}

	c.Start()
	logger.Log.Info("Cron-планировщик запущен")
	return c
}
